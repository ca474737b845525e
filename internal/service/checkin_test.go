package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbehari1995/habit-snake-bot/internal/domain/entity"
	"github.com/kbehari1995/habit-snake-bot/internal/domain/service"
)

type fakeResetter struct {
	cleared []int64
}

func (r *fakeResetter) ClearReminder(userID int64) {
	r.cleared = append(r.cleared, userID)
}

type checkinFixture struct {
	flow     service.CheckinFlow
	store    *fakeStore
	notifier *fakeNotifier
	sessions *memSessions
	resetter *fakeResetter
	clock    *fakeClock
}

// newCheckinFixture fixes now at 2025-07-08 12:00 UTC, so yesterday is
// 2025-07-07 and the month key is 202507.
func newCheckinFixture() *checkinFixture {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	sessions := newMemSessions()
	resetter := &fakeResetter{}
	clk := &fakeClock{now: time.Date(2025, 7, 8, 12, 0, 0, 0, time.UTC)}

	return &checkinFixture{
		flow: NewCheckinFlow(store, sessions, notifier,
			NewEligibilityService(store), NewStreakLedger(store), resetter, clk),
		store:    store,
		notifier: notifier,
		sessions: sessions,
		resetter: resetter,
		clock:    clk,
	}
}

const (
	fixtureToday     = "2025-07-08"
	fixtureYesterday = "2025-07-07"
	fixtureMonth     = "202507"
)

func TestCheckinStartPrefersYesterday(t *testing.T) {
	fix := newCheckinFixture()
	ctx := context.Background()

	require.NoError(t, fix.flow.Start(ctx, 1, "kb"))

	sess := fix.sessions.checkin[1]
	require.NotNil(t, sess)
	assert.Equal(t, entity.CheckinSelectingDate, sess.Stage)
	assert.Equal(t, fixtureYesterday, sess.Date)
	assert.True(t, sess.DualAvailable)

	last := fix.notifier.last()
	assert.Equal(t, "send", last.kind)
	require.Len(t, last.keyboard, 1)
	assert.Equal(t, "date|"+fixtureYesterday, last.keyboard[0][0].Data)
}

func TestCheckinStartOffersTodayWhenYesterdayDone(t *testing.T) {
	fix := newCheckinFixture()
	ctx := context.Background()
	h := testHabit(1, fixtureMonth, "Workout")
	fix.store.habits = append(fix.store.habits, h)
	fix.store.checkins = append(fix.store.checkins,
		testCheckin(1, h.ID, fixtureYesterday, entity.StatusDone))

	require.NoError(t, fix.flow.Start(ctx, 1, "kb"))

	sess := fix.sessions.checkin[1]
	require.NotNil(t, sess)
	assert.Equal(t, fixtureToday, sess.Date)
	assert.False(t, sess.DualAvailable)
}

func TestCheckinStartBothDatesDone(t *testing.T) {
	fix := newCheckinFixture()
	ctx := context.Background()
	h := testHabit(1, fixtureMonth, "Workout")
	fix.store.habits = append(fix.store.habits, h)
	fix.store.checkins = append(fix.store.checkins,
		testCheckin(1, h.ID, fixtureYesterday, entity.StatusDone),
		testCheckin(1, h.ID, fixtureToday, entity.StatusDone))

	require.NoError(t, fix.flow.Start(ctx, 1, "kb"))

	assert.Nil(t, fix.sessions.checkin[1])
	assert.Contains(t, fix.notifier.last().text, "already checked in")
}

func TestCheckinNoCoreHabits(t *testing.T) {
	fix := newCheckinFixture()
	ctx := context.Background()

	require.NoError(t, fix.flow.Start(ctx, 1, "kb"))
	require.NoError(t, fix.flow.HandleCallback(ctx, 1, "date|"+fixtureYesterday))

	assert.Nil(t, fix.sessions.checkin[1], "session must end")
	assert.Contains(t, fix.notifier.last().text, "/sethabits")
	assert.Empty(t, fix.store.committedBatches)
}

func TestCheckinFullFlowAllDone(t *testing.T) {
	fix := newCheckinFixture()
	ctx := context.Background()
	h1 := testHabit(1, fixtureMonth, "Workout")
	h2 := testHabit(1, fixtureMonth, "Read")
	fix.store.habits = append(fix.store.habits, h1, h2)

	require.NoError(t, fix.flow.Start(ctx, 1, "kb"))
	require.NoError(t, fix.flow.HandleCallback(ctx, 1, "date|"+fixtureYesterday))

	assert.Contains(t, fix.notifier.last().text, "Workout")
	require.NoError(t, fix.flow.HandleCallback(ctx, 1, "habit|done"))
	assert.Contains(t, fix.notifier.last().text, "Read")
	require.NoError(t, fix.flow.HandleCallback(ctx, 1, "habit|done"))

	// One atomic batch with one manual record per habit.
	require.Len(t, fix.store.committedBatches, 1)
	batch := fix.store.committedBatches[0]
	require.Len(t, batch, 2)
	for _, rec := range batch {
		assert.Equal(t, entity.StatusDone, rec.Status)
		assert.Equal(t, entity.MarkedManual, rec.MarkedBy)
		assert.Equal(t, fixtureYesterday, rec.ForDate)
	}

	// Perfect day grows the snake by one.
	require.Len(t, fix.store.streaks, 1)
	assert.Equal(t, 1, fix.store.streaks[0].Score)
	assert.Equal(t, 1, fix.store.streaks[0].Delta)
	channel := fix.notifier.channelMessages()
	require.Len(t, channel, 1)
	assert.Contains(t, channel[0].text, "Snake grew by +1")

	// Both dates were open, so the other date is offered next.
	sess := fix.sessions.checkin[1]
	require.NotNil(t, sess)
	assert.Equal(t, entity.CheckinOfferingSecond, sess.Stage)

	require.NoError(t, fix.flow.HandleCallback(ctx, 1, "second|no"))
	assert.Nil(t, fix.sessions.checkin[1])
}

func TestCheckinMissesShrinkSnake(t *testing.T) {
	fix := newCheckinFixture()
	ctx := context.Background()
	h1 := testHabit(1, fixtureMonth, "Workout")
	h2 := testHabit(1, fixtureMonth, "Read")
	fix.store.habits = append(fix.store.habits, h1, h2)

	require.NoError(t, fix.flow.Start(ctx, 1, "kb"))
	require.NoError(t, fix.flow.HandleCallback(ctx, 1, "date|"+fixtureYesterday))
	require.NoError(t, fix.flow.HandleCallback(ctx, 1, "habit|missed"))
	require.NoError(t, fix.flow.HandleCallback(ctx, 1, "habit|missed"))

	require.Len(t, fix.store.streaks, 1)
	assert.Equal(t, -2, fix.store.streaks[0].Delta)
	assert.Equal(t, -2, fix.store.streaks[0].Score)
	channel := fix.notifier.channelMessages()
	require.Len(t, channel, 1)
	assert.Contains(t, channel[0].text, "Snake shrank by -2")
}

func TestCheckinDndPartition(t *testing.T) {
	fix := newCheckinFixture()
	ctx := context.Background()
	h1 := testHabit(1, fixtureMonth, "Workout")
	h2 := testHabit(1, fixtureMonth, "Read")
	fix.store.habits = append(fix.store.habits, h1, h2)
	fix.store.windows = append(fix.store.windows, &entity.DndWindow{
		UserID: 1, HabitID: h1.ID, HabitText: h1.Text,
		StartDate: fixtureYesterday, EndDate: fixtureYesterday,
	})

	require.NoError(t, fix.flow.Start(ctx, 1, "kb"))
	require.NoError(t, fix.flow.HandleCallback(ctx, 1, "date|"+fixtureYesterday))

	// Excused notice, then only the available habit is asked.
	var noticeSeen bool
	for _, m := range fix.notifier.msgs {
		if m.kind == "send" && strings.Contains(m.text, "DND") && strings.Contains(m.text, "Workout") {
			noticeSeen = true
		}
	}
	assert.True(t, noticeSeen, "excused-habit notice expected")
	assert.Contains(t, fix.notifier.last().text, "Read")

	require.NoError(t, fix.flow.HandleCallback(ctx, 1, "habit|done"))

	require.Len(t, fix.store.committedBatches, 1)
	batch := fix.store.committedBatches[0]
	require.Len(t, batch, 2)
	byText := map[string]entity.Status{}
	for _, rec := range batch {
		byText[rec.HabitText] = rec.Status
	}
	assert.Equal(t, entity.StatusDnd, byText["Workout"])
	assert.Equal(t, entity.StatusDone, byText["Read"])
}

func TestCheckinAllHabitsOnDnd(t *testing.T) {
	fix := newCheckinFixture()
	ctx := context.Background()
	h1 := testHabit(1, fixtureMonth, "Workout")
	h2 := testHabit(1, fixtureMonth, "Read")
	fix.store.habits = append(fix.store.habits, h1, h2)
	for _, h := range []*entity.Habit{h1, h2} {
		fix.store.windows = append(fix.store.windows, &entity.DndWindow{
			UserID: 1, HabitID: h.ID, HabitText: h.Text,
			StartDate: fixtureYesterday, EndDate: fixtureYesterday,
		})
	}

	require.NoError(t, fix.flow.Start(ctx, 1, "kb"))
	require.NoError(t, fix.flow.HandleCallback(ctx, 1, "date|"+fixtureYesterday))

	// The whole day is committed as excused with no questions asked.
	require.Len(t, fix.store.committedBatches, 1)
	for _, rec := range fix.store.committedBatches[0] {
		assert.Equal(t, entity.StatusDnd, rec.Status)
	}

	// No streak entry, no channel broadcast, no second-date offer.
	assert.Empty(t, fix.store.streaks)
	assert.Empty(t, fix.notifier.channelMessages())
	assert.Nil(t, fix.sessions.checkin[1])
	assert.Contains(t, fix.notifier.last().text, "All habits are on DND")
}

func TestCheckinRestDayOffer(t *testing.T) {
	fix := newCheckinFixture()
	ctx := context.Background()
	h := testHabit(1, fixtureMonth, "Workout")
	fix.store.habits = append(fix.store.habits, h)
	// Six straight done days before yesterday earns the rest-day button.
	for i := 1; i <= 6; i++ {
		d := entity.FormatDate(fix.clock.now.AddDate(0, 0, -1-i))
		fix.store.checkins = append(fix.store.checkins, testCheckin(1, h.ID, d, entity.StatusDone))
	}

	require.NoError(t, fix.flow.Start(ctx, 1, "kb"))
	require.NoError(t, fix.flow.HandleCallback(ctx, 1, "date|"+fixtureYesterday))

	last := fix.notifier.last()
	require.Len(t, last.keyboard, 2)
	assert.Equal(t, "habit|rest", last.keyboard[1][0].Data)

	require.NoError(t, fix.flow.HandleCallback(ctx, 1, "habit|rest"))
	require.Len(t, fix.store.committedBatches, 1)
	assert.Equal(t, entity.StatusRest, fix.store.committedBatches[0][0].Status)

	// A rest day is not a miss.
	require.Len(t, fix.store.streaks, 1)
	assert.Equal(t, 1, fix.store.streaks[0].Delta)
}

func TestCheckinSecondRoundSkipsRestDayOffer(t *testing.T) {
	fix := newCheckinFixture()
	ctx := context.Background()
	h := testHabit(1, fixtureMonth, "Workout")
	fix.store.habits = append(fix.store.habits, h)
	// Make the habit rest-eligible for both dates.
	for i := 1; i <= 7; i++ {
		d := entity.FormatDate(fix.clock.now.AddDate(0, 0, -1-i))
		fix.store.checkins = append(fix.store.checkins, testCheckin(1, h.ID, d, entity.StatusDone))
	}

	require.NoError(t, fix.flow.Start(ctx, 1, "kb"))
	require.NoError(t, fix.flow.HandleCallback(ctx, 1, "date|"+fixtureYesterday))
	require.NoError(t, fix.flow.HandleCallback(ctx, 1, "habit|done"))

	require.Equal(t, entity.CheckinOfferingSecond, fix.sessions.checkin[1].Stage)
	require.NoError(t, fix.flow.HandleCallback(ctx, 1, "second|yes"))

	// Second round question must offer only Done/Missed.
	last := fix.notifier.last()
	assert.Contains(t, last.text, "Workout")
	require.Len(t, last.keyboard, 1)

	require.NoError(t, fix.flow.HandleCallback(ctx, 1, "habit|done"))
	require.Len(t, fix.store.committedBatches, 2)
	assert.Equal(t, fixtureToday, fix.store.committedBatches[1][0].ForDate)
	assert.Nil(t, fix.sessions.checkin[1])
}

func TestCheckinClearsReminderOnlyForYesterday(t *testing.T) {
	fix := newCheckinFixture()
	ctx := context.Background()
	h := testHabit(1, fixtureMonth, "Workout")
	fix.store.habits = append(fix.store.habits, h)

	require.NoError(t, fix.flow.Start(ctx, 1, "kb"))
	require.NoError(t, fix.flow.HandleCallback(ctx, 1, "date|"+fixtureYesterday))
	require.NoError(t, fix.flow.HandleCallback(ctx, 1, "habit|done"))
	assert.Equal(t, []int64{1}, fix.resetter.cleared)

	require.NoError(t, fix.flow.HandleCallback(ctx, 1, "second|yes"))
	require.NoError(t, fix.flow.HandleCallback(ctx, 1, "habit|done"))
	assert.Equal(t, []int64{1}, fix.resetter.cleared, "today's commit must not clear the reminder")
}

func TestCheckinCallbackWithoutSession(t *testing.T) {
	fix := newCheckinFixture()
	ctx := context.Background()

	require.NoError(t, fix.flow.HandleCallback(ctx, 1, "habit|done"))
	assert.Contains(t, fix.notifier.last().text, "/checkin")
}
