package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/kbehari1995/habit-snake-bot/internal/domain/entity"
	"github.com/kbehari1995/habit-snake-bot/internal/domain/repository"
	"github.com/kbehari1995/habit-snake-bot/internal/domain/service"
	"github.com/kbehari1995/habit-snake-bot/pkg/clock"
)

// Callback data prefixes for the check-in conversation.
const (
	cbDate   = "date"
	cbHabit  = "habit"
	cbSecond = "second"
)

type checkinFlow struct {
	store     repository.Store
	sessions  repository.SessionStore
	notifier  service.Notifier
	elig      service.Eligibility
	streaks   *StreakLedger
	reminders service.ReminderResetter
	clock     clock.Clock
}

// NewCheckinFlow creates the check-in conversation state machine.
func NewCheckinFlow(
	store repository.Store,
	sessions repository.SessionStore,
	notifier service.Notifier,
	elig service.Eligibility,
	streaks *StreakLedger,
	reminders service.ReminderResetter,
	clk clock.Clock,
) service.CheckinFlow {
	return &checkinFlow{
		store:     store,
		sessions:  sessions,
		notifier:  notifier,
		elig:      elig,
		streaks:   streaks,
		reminders: reminders,
		clock:     clk,
	}
}

// Start opens a new session, silently replacing any in-progress one for
// the same user. Yesterday is offered before today because it is closer
// to becoming permanently missed.
func (f *checkinFlow) Start(ctx context.Context, userID int64, username string) error {
	if err := f.store.Refresh(ctx); err != nil {
		f.sendError(ctx, userID)
		return fmt.Errorf("failed to refresh store: %w", err)
	}

	now := f.clock.Now()
	today := entity.FormatDate(now)
	yesterday := entity.FormatDate(now.AddDate(0, 0, -1))

	hasToday := f.store.HasCheckedIn(userID, today)
	hasYesterday := f.store.HasCheckedIn(userID, yesterday)
	if hasToday && hasYesterday {
		_ = f.sessions.DeleteCheckinSession(ctx, userID)
		return f.notifier.SendToUser(ctx, userID,
			"You've already checked in for both today and yesterday!", nil)
	}

	date := yesterday
	if hasYesterday {
		date = today
	}
	other := otherOf(date, today, yesterday)

	sess := &entity.CheckinSession{
		UserID:        userID,
		Username:      username,
		Stage:         entity.CheckinSelectingDate,
		Date:          date,
		DualAvailable: !f.store.HasCheckedIn(userID, other),
	}
	if err := f.sessions.SaveCheckinSession(ctx, sess); err != nil {
		return fmt.Errorf("failed to save check-in session: %w", err)
	}

	kb := service.Row(service.Button{
		Label: formatDateButton(date),
		Data:  cbDate + "|" + date,
	})
	return f.notifier.SendToUser(ctx, userID, "Check-in for:", kb)
}

func (f *checkinFlow) HandleCallback(ctx context.Context, userID int64, data string) error {
	sess, err := f.sessions.CheckinSession(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load check-in session: %w", err)
	}
	if sess == nil {
		return f.notifier.EditLastMessage(ctx, userID,
			"No check-in session found. Use /checkin to start.", nil)
	}

	prefix, value, ok := strings.Cut(data, "|")
	if !ok {
		return nil
	}
	switch {
	case prefix == cbDate && sess.Stage == entity.CheckinSelectingDate:
		return f.beginAnswering(ctx, sess, value)
	case prefix == cbHabit && sess.Stage == entity.CheckinAnswering:
		return f.recordAnswer(ctx, sess, value)
	case prefix == cbSecond && sess.Stage == entity.CheckinOfferingSecond:
		return f.handleSecondResponse(ctx, sess, value)
	}
	return nil
}

// beginAnswering loads the habits for the month containing date,
// partitions them by DND, and either short-circuits (no habits, or all
// excused) or starts asking about the available ones in order.
func (f *checkinFlow) beginAnswering(ctx context.Context, sess *entity.CheckinSession, date string) error {
	habits := coreHabits(f.store.HabitsForMonth(sess.UserID, entity.YearMonthOf(date)))
	if len(habits) == 0 {
		_ = f.sessions.DeleteCheckinSession(ctx, sess.UserID)
		return f.notifier.EditLastMessage(ctx, sess.UserID,
			"No core habits found for this month. Use /sethabits to set your core habits.", nil)
	}

	sess.Date = date
	sess.Habits = make([]entity.HabitRef, len(habits))
	sess.DndMask = make([]bool, len(habits))
	sess.Responses = sess.Responses[:0]
	sess.Cursor = 0
	sess.Stage = entity.CheckinAnswering

	var excused []string
	for i, h := range habits {
		sess.Habits[i] = entity.HabitRef{ID: h.ID, Text: h.Text}
		if f.elig.IsDndExcused(sess.UserID, date, h.ID) {
			sess.DndMask[i] = true
			excused = append(excused, h.Text)
		}
	}

	if len(excused) == len(habits) {
		// Nothing to ask: record the whole day as excused and stop.
		for range habits {
			sess.Responses = append(sess.Responses, entity.StatusDnd)
		}
		if err := f.commit(ctx, sess); err != nil {
			return err
		}
		_ = f.sessions.DeleteCheckinSession(ctx, sess.UserID)
		return f.notifier.EditLastMessage(ctx, sess.UserID,
			fmt.Sprintf("All habits are on DND for %s:\n%s", date, bulletList(excused)), nil)
	}
	if len(excused) > 0 {
		if err := f.notifier.SendToUser(ctx, sess.UserID,
			fmt.Sprintf("You are on DND for %s. Excluded habits:\n%s", date, bulletList(excused)), nil); err != nil {
			log.Printf("Failed to send DND notice to user %d: %v", sess.UserID, err)
		}
	}

	if err := f.sessions.SaveCheckinSession(ctx, sess); err != nil {
		return fmt.Errorf("failed to save check-in session: %w", err)
	}
	return f.askNext(ctx, sess)
}

// askNext advances the cursor past DND-excused habits, auto-recording
// them, and presents the next question. When the list is exhausted it
// moves to commit.
func (f *checkinFlow) askNext(ctx context.Context, sess *entity.CheckinSession) error {
	for sess.Cursor < len(sess.Habits) && sess.DndMask[sess.Cursor] {
		sess.Responses = append(sess.Responses, entity.StatusDnd)
		sess.Cursor++
	}
	if sess.Cursor >= len(sess.Habits) {
		return f.finishAnswering(ctx, sess)
	}

	habit := sess.Habits[sess.Cursor]
	kb := service.Keyboard{{
		{Label: "Done", Data: cbHabit + "|" + string(entity.StatusDone)},
		{Label: "Missed", Data: cbHabit + "|" + string(entity.StatusMissed)},
	}}
	if !sess.SecondRound && f.elig.IsRestDayEligible(sess.UserID, habit.ID, sess.Date) {
		kb = append(kb, []service.Button{
			{Label: "Rest Day", Data: cbHabit + "|" + string(entity.StatusRest)},
		})
	}

	if err := f.sessions.SaveCheckinSession(ctx, sess); err != nil {
		return fmt.Errorf("failed to save check-in session: %w", err)
	}
	return f.notifier.EditLastMessage(ctx, sess.UserID,
		fmt.Sprintf("Did you do: %s?", habit.Text), kb)
}

func (f *checkinFlow) recordAnswer(ctx context.Context, sess *entity.CheckinSession, value string) error {
	status := entity.Status(value)
	switch status {
	case entity.StatusDone, entity.StatusMissed, entity.StatusRest:
	default:
		return nil
	}
	sess.Responses = append(sess.Responses, status)
	sess.Cursor++
	return f.askNext(ctx, sess)
}

func (f *checkinFlow) finishAnswering(ctx context.Context, sess *entity.CheckinSession) error {
	if err := f.commit(ctx, sess); err != nil {
		return err
	}
	if sess.DualAvailable && !sess.SecondRound {
		return f.offerSecondDate(ctx, sess)
	}
	_ = f.sessions.DeleteCheckinSession(ctx, sess.UserID)
	return f.notifier.EditLastMessage(ctx, sess.UserID,
		fmt.Sprintf("Check-in completed for %s!", sess.Date), nil)
}

// commit writes the full per-habit status list as one batch, resets the
// reminder escalation if the committed date is yesterday, appends the
// streak entry and announces to the channel. A fully DND-excused day
// records nothing to the ledger and sends no broadcast.
func (f *checkinFlow) commit(ctx context.Context, sess *entity.CheckinSession) error {
	now := f.clock.Now().UTC()
	batch := make([]*entity.CheckinRecord, len(sess.Habits))
	for i, h := range sess.Habits {
		batch[i] = &entity.CheckinRecord{
			ID:        uuid.New(),
			UserID:    sess.UserID,
			Username:  sess.Username,
			HabitID:   h.ID,
			HabitText: h.Text,
			ForDate:   sess.Date,
			YearMonth: entity.YearMonthOf(sess.Date),
			Status:    sess.Responses[i],
			MarkedBy:  entity.MarkedManual,
			CreatedAt: now,
		}
	}
	if err := f.store.AppendCheckins(ctx, batch); err != nil {
		f.sendError(ctx, sess.UserID)
		return fmt.Errorf("failed to commit check-in batch: %w", err)
	}
	if err := f.store.Refresh(ctx); err != nil {
		log.Printf("Failed to refresh store after check-in commit: %v", err)
	}

	yesterday := entity.FormatDate(f.clock.Now().AddDate(0, 0, -1))
	if sess.Date == yesterday {
		f.reminders.ClearReminder(sess.UserID)
		log.Printf("User %d checked in for yesterday, reset reminder count", sess.UserID)
	}

	allExcused := true
	misses := 0
	for _, s := range sess.Responses {
		if s != entity.StatusDnd {
			allExcused = false
		}
		if s == entity.StatusMissed {
			misses++
		}
	}
	if allExcused {
		return nil
	}

	if err := f.streaks.Record(ctx, sess.UserID, sess.Username, sess.Date, misses); err != nil {
		log.Printf("Failed to record streak for user %d: %v", sess.UserID, err)
	}
	announcement := formatCheckinAnnouncement(sess.Username, sess.Date, sess.Habits, sess.Responses)
	if err := f.notifier.SendToChannel(ctx, announcement); err != nil {
		log.Printf("Failed to announce check-in for user %d: %v", sess.UserID, err)
	}
	return nil
}

func (f *checkinFlow) offerSecondDate(ctx context.Context, sess *entity.CheckinSession) error {
	now := f.clock.Now()
	today := entity.FormatDate(now)
	yesterday := entity.FormatDate(now.AddDate(0, 0, -1))
	other := otherOf(sess.Date, today, yesterday)

	if f.store.HasCheckedIn(sess.UserID, other) {
		_ = f.sessions.DeleteCheckinSession(ctx, sess.UserID)
		return f.notifier.EditLastMessage(ctx, sess.UserID, "Check-in session completed!", nil)
	}

	sess.Stage = entity.CheckinOfferingSecond
	if err := f.sessions.SaveCheckinSession(ctx, sess); err != nil {
		return fmt.Errorf("failed to save check-in session: %w", err)
	}
	kb := service.Keyboard{
		{{Label: "Yes", Data: cbSecond + "|yes"}},
		{{Label: "No", Data: cbSecond + "|no"}},
	}
	return f.notifier.EditLastMessage(ctx, sess.UserID,
		fmt.Sprintf("Would you like to check in for %s as well?", formatDateButton(other)), kb)
}

func (f *checkinFlow) handleSecondResponse(ctx context.Context, sess *entity.CheckinSession, value string) error {
	if value != "yes" {
		_ = f.sessions.DeleteCheckinSession(ctx, sess.UserID)
		return f.notifier.EditLastMessage(ctx, sess.UserID, "Check-in session completed!", nil)
	}

	now := f.clock.Now()
	today := entity.FormatDate(now)
	yesterday := entity.FormatDate(now.AddDate(0, 0, -1))
	other := otherOf(sess.Date, today, yesterday)
	if f.store.HasCheckedIn(sess.UserID, other) {
		_ = f.sessions.DeleteCheckinSession(ctx, sess.UserID)
		return f.notifier.EditLastMessage(ctx, sess.UserID,
			"The other date is no longer available for check-in.", nil)
	}

	// Rest-day offers are disabled during the second date's round.
	sess.SecondRound = true
	sess.DualAvailable = false
	return f.beginAnswering(ctx, sess, other)
}

func (f *checkinFlow) sendError(ctx context.Context, userID int64) {
	if err := f.notifier.SendToUser(ctx, userID,
		"Sorry, something went wrong. Please try again later.", nil); err != nil {
		log.Printf("Failed to send error notice to user %d: %v", userID, err)
	}
}

func coreHabits(habits []*entity.Habit) []*entity.Habit {
	core := habits[:0:0]
	for _, h := range habits {
		if h.IsCore() {
			core = append(core, h)
		}
	}
	return core
}

func otherOf(date, today, yesterday string) string {
	if date == today {
		return yesterday
	}
	return today
}

var statusGlyph = map[entity.Status]string{
	entity.StatusDone:   "✅",
	entity.StatusMissed: "❌",
	entity.StatusRest:   "⏭️",
	entity.StatusDnd:    "⛔",
}

func formatCheckinAnnouncement(username, date string, habits []entity.HabitRef, responses []entity.Status) string {
	misses := 0
	var lines []string
	for i, h := range habits {
		lines = append(lines, statusGlyph[responses[i]]+" "+h.Text)
		if responses[i] == entity.StatusMissed {
			misses++
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s checked in for %s!\n\n%s\n", username, date, strings.Join(lines, "\n"))
	if misses == 0 {
		b.WriteString("🐍 Snake grew by +1")
	} else {
		fmt.Fprintf(&b, "🐍 Snake shrank by -%d", misses)
	}
	return b.String()
}

func formatDateButton(date string) string {
	t, err := entity.ParseDate(date)
	if err != nil {
		return date
	}
	return fmt.Sprintf("[%d%s %s, %s]", t.Day(), daySuffix(t.Day()), t.Month(), t.Format("Mon"))
}

func daySuffix(day int) string {
	if day >= 11 && day <= 13 {
		return "th"
	}
	switch day % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	}
	return "th"
}

func bulletList(items []string) string {
	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("• " + item)
	}
	return b.String()
}
