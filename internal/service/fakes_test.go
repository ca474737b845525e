package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kbehari1995/habit-snake-bot/internal/domain/entity"
	"github.com/kbehari1995/habit-snake-bot/internal/domain/service"
)

// fakeClock returns a fixed instant.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

// fakeStore is an in-memory Store with write recording and error
// injection for the failure-path tests.
type fakeStore struct {
	users    []*entity.User
	habits   []*entity.Habit
	checkins []*entity.CheckinRecord
	windows  []*entity.DndWindow
	streaks  []*entity.StreakEntry

	refreshes int

	appendCheckinsErr error
	addDndErr         error
	updateDndErr      error
	deleteDndErr      error

	committedBatches [][]*entity.CheckinRecord
	dndOps           []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{}
}

func (s *fakeStore) Refresh(ctx context.Context) error {
	s.refreshes++
	return nil
}

func (s *fakeStore) AllUsers() []*entity.User { return s.users }

func (s *fakeStore) UserByID(userID int64) *entity.User {
	for _, u := range s.users {
		if u.ID == userID {
			return u
		}
	}
	return nil
}

func (s *fakeStore) HabitsForMonth(userID int64, yearMonth string) []*entity.Habit {
	var out []*entity.Habit
	for _, h := range s.habits {
		if h.UserID == userID && h.YearMonth == yearMonth {
			out = append(out, h)
		}
	}
	return out
}

func (s *fakeStore) HasCoreHabits(userID int64, yearMonth string) bool {
	for _, h := range s.habits {
		if h.UserID == userID && h.YearMonth == yearMonth && h.IsCore() {
			return true
		}
	}
	return false
}

func (s *fakeStore) HasCheckedIn(userID int64, date string) bool {
	for _, rec := range s.checkins {
		if rec.UserID == userID && rec.ForDate == date {
			return true
		}
	}
	return false
}

func (s *fakeStore) CheckinsForDate(userID int64, date string) []*entity.CheckinRecord {
	var out []*entity.CheckinRecord
	for _, rec := range s.checkins {
		if rec.UserID == userID && rec.ForDate == date {
			out = append(out, rec)
		}
	}
	return out
}

func (s *fakeStore) LastCheckins(userID int64, habitID uuid.UUID, beforeDate string, limit int) []*entity.CheckinRecord {
	var matches []*entity.CheckinRecord
	for _, rec := range s.checkins {
		if rec.UserID == userID && rec.HabitID == habitID && rec.ForDate < beforeDate {
			matches = append(matches, rec)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ForDate > matches[j].ForDate })
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

func (s *fakeStore) InDndWindow(userID int64, date string, habitID uuid.UUID) bool {
	for _, w := range s.windows {
		if w.UserID == userID && w.HabitID == habitID && w.Contains(date) {
			return true
		}
	}
	return false
}

func (s *fakeStore) DndWindows(userID int64) []*entity.DndWindow {
	var out []*entity.DndWindow
	for _, w := range s.windows {
		if w.UserID == userID {
			out = append(out, w)
		}
	}
	return out
}

func (s *fakeStore) StreakRows(date string) []*entity.StreakEntry {
	var out []*entity.StreakEntry
	for _, e := range s.streaks {
		if e.ForDate == date {
			out = append(out, e)
		}
	}
	return out
}

func (s *fakeStore) LatestStreaks() []*entity.StreakEntry {
	latest := make(map[int64]*entity.StreakEntry)
	for _, e := range s.streaks {
		latest[e.UserID] = e
	}
	out := make([]*entity.StreakEntry, 0, len(latest))
	for _, e := range latest {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Username < out[j].Username
	})
	return out
}

func (s *fakeStore) LatestScore(userID int64) int {
	for i := len(s.streaks) - 1; i >= 0; i-- {
		if s.streaks[i].UserID == userID {
			return s.streaks[i].Score
		}
	}
	return 0
}

func (s *fakeStore) UpsertUser(ctx context.Context, u *entity.User) error {
	for i, existing := range s.users {
		if existing.ID == u.ID {
			s.users[i] = u
			return nil
		}
	}
	s.users = append(s.users, u)
	return nil
}

func (s *fakeStore) AddHabits(ctx context.Context, habits []*entity.Habit) error {
	s.habits = append(s.habits, habits...)
	return nil
}

func (s *fakeStore) AppendCheckins(ctx context.Context, batch []*entity.CheckinRecord) error {
	if s.appendCheckinsErr != nil {
		return s.appendCheckinsErr
	}
	s.committedBatches = append(s.committedBatches, batch)
	s.checkins = append(s.checkins, batch...)
	return nil
}

func (s *fakeStore) AppendStreak(ctx context.Context, e *entity.StreakEntry) error {
	s.streaks = append(s.streaks, e)
	return nil
}

func (s *fakeStore) AddDndWindow(ctx context.Context, w *entity.DndWindow) error {
	if s.addDndErr != nil {
		return s.addDndErr
	}
	s.windows = append(s.windows, w)
	s.dndOps = append(s.dndOps, "add:"+w.HabitText)
	return nil
}

func (s *fakeStore) UpdateDndWindow(ctx context.Context, id uuid.UUID, upd entity.DndWindowUpdate) error {
	if s.updateDndErr != nil {
		return s.updateDndErr
	}
	for _, w := range s.windows {
		if w.ID == id {
			upd.Apply(w)
			s.dndOps = append(s.dndOps, "edit:"+id.String())
			return nil
		}
	}
	s.dndOps = append(s.dndOps, "edit:"+id.String())
	return nil
}

func (s *fakeStore) DeleteDndWindow(ctx context.Context, id uuid.UUID) error {
	if s.deleteDndErr != nil {
		return s.deleteDndErr
	}
	for i, w := range s.windows {
		if w.ID == id {
			s.windows = append(s.windows[:i], s.windows[i+1:]...)
			break
		}
	}
	s.dndOps = append(s.dndOps, "delete:"+id.String())
	return nil
}

// sentMessage records one notifier call.
type sentMessage struct {
	kind     string // send | edit | channel
	userID   int64
	text     string
	keyboard service.Keyboard
}

type fakeNotifier struct {
	msgs []sentMessage
}

func (n *fakeNotifier) SendToUser(ctx context.Context, userID int64, text string, kb service.Keyboard) error {
	n.msgs = append(n.msgs, sentMessage{kind: "send", userID: userID, text: text, keyboard: kb})
	return nil
}

func (n *fakeNotifier) EditLastMessage(ctx context.Context, userID int64, text string, kb service.Keyboard) error {
	n.msgs = append(n.msgs, sentMessage{kind: "edit", userID: userID, text: text, keyboard: kb})
	return nil
}

func (n *fakeNotifier) SendToChannel(ctx context.Context, text string) error {
	n.msgs = append(n.msgs, sentMessage{kind: "channel", text: text})
	return nil
}

func (n *fakeNotifier) last() sentMessage {
	if len(n.msgs) == 0 {
		return sentMessage{}
	}
	return n.msgs[len(n.msgs)-1]
}

func (n *fakeNotifier) channelMessages() []sentMessage {
	var out []sentMessage
	for _, m := range n.msgs {
		if m.kind == "channel" {
			out = append(out, m)
		}
	}
	return out
}

// memSessions is an in-memory SessionStore without expiry.
type memSessions struct {
	checkin map[int64]*entity.CheckinSession
	dnd     map[int64]*entity.DndSession
	habits  map[int64]*entity.HabitSetupSession
}

func newMemSessions() *memSessions {
	return &memSessions{
		checkin: make(map[int64]*entity.CheckinSession),
		dnd:     make(map[int64]*entity.DndSession),
		habits:  make(map[int64]*entity.HabitSetupSession),
	}
}

func (m *memSessions) CheckinSession(ctx context.Context, userID int64) (*entity.CheckinSession, error) {
	return m.checkin[userID], nil
}

func (m *memSessions) SaveCheckinSession(ctx context.Context, s *entity.CheckinSession) error {
	m.checkin[s.UserID] = s
	return nil
}

func (m *memSessions) DeleteCheckinSession(ctx context.Context, userID int64) error {
	delete(m.checkin, userID)
	return nil
}

func (m *memSessions) DndSession(ctx context.Context, userID int64) (*entity.DndSession, error) {
	return m.dnd[userID], nil
}

func (m *memSessions) SaveDndSession(ctx context.Context, s *entity.DndSession) error {
	m.dnd[s.UserID] = s
	return nil
}

func (m *memSessions) DeleteDndSession(ctx context.Context, userID int64) error {
	delete(m.dnd, userID)
	return nil
}

func (m *memSessions) HabitSetupSession(ctx context.Context, userID int64) (*entity.HabitSetupSession, error) {
	return m.habits[userID], nil
}

func (m *memSessions) SaveHabitSetupSession(ctx context.Context, s *entity.HabitSetupSession) error {
	m.habits[s.UserID] = s
	return nil
}

func (m *memSessions) DeleteHabitSetupSession(ctx context.Context, userID int64) error {
	delete(m.habits, userID)
	return nil
}

// Test fixture helpers.

func testUser(id int64, username string) *entity.User {
	return &entity.User{ID: id, Username: username, CreatedAt: time.Now().UTC()}
}

func testHabit(userID int64, yearMonth, text string) *entity.Habit {
	return &entity.Habit{
		ID:        uuid.New(),
		UserID:    userID,
		YearMonth: yearMonth,
		Text:      text,
		Type:      entity.HabitTypeCore,
		CreatedAt: time.Now().UTC(),
	}
}

func testCheckin(userID int64, habitID uuid.UUID, date string, status entity.Status) *entity.CheckinRecord {
	return &entity.CheckinRecord{
		ID:        uuid.New(),
		UserID:    userID,
		HabitID:   habitID,
		ForDate:   date,
		YearMonth: entity.YearMonthOf(date),
		Status:    status,
		MarkedBy:  entity.MarkedManual,
		CreatedAt: time.Now().UTC(),
	}
}
