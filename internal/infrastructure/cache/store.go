package cache

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/kbehari1995/habit-snake-bot/internal/domain/entity"
	"github.com/kbehari1995/habit-snake-bot/internal/domain/repository"
)

// store is the in-memory snapshot of the backing tables. Reads are
// served from the snapshot under a read lock; writes go straight to
// the repositories and become visible on the next Refresh.
type store struct {
	users    repository.UserRepository
	habits   repository.HabitRepository
	checkins repository.CheckinRepository
	dnd      repository.DndRepository
	streaks  repository.StreakRepository

	mu sync.RWMutex

	userList    []*entity.User
	userByID    map[int64]*entity.User
	habitList   []*entity.Habit
	checkinList []*entity.CheckinRecord
	checkedIn   map[string]bool // "<userID>|<date>"
	dndList     []*entity.DndWindow
	streakList  []*entity.StreakEntry
}

// NewStore creates the snapshot store over the given repositories. The
// snapshot is empty until the first Refresh.
func NewStore(
	users repository.UserRepository,
	habits repository.HabitRepository,
	checkins repository.CheckinRepository,
	dnd repository.DndRepository,
	streaks repository.StreakRepository,
) repository.Store {
	return &store{
		users:     users,
		habits:    habits,
		checkins:  checkins,
		dnd:       dnd,
		streaks:   streaks,
		userByID:  make(map[int64]*entity.User),
		checkedIn: make(map[string]bool),
	}
}

func (s *store) Refresh(ctx context.Context) error {
	users, err := s.users.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load users: %w", err)
	}
	habits, err := s.habits.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load habits: %w", err)
	}
	checkins, err := s.checkins.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load check-in records: %w", err)
	}
	windows, err := s.dnd.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load DND windows: %w", err)
	}
	streaks, err := s.streaks.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load streak entries: %w", err)
	}

	byID := make(map[int64]*entity.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	checkedIn := make(map[string]bool, len(checkins))
	for _, rec := range checkins {
		checkedIn[checkinKey(rec.UserID, rec.ForDate)] = true
	}

	s.mu.Lock()
	s.userList = users
	s.userByID = byID
	s.habitList = habits
	s.checkinList = checkins
	s.checkedIn = checkedIn
	s.dndList = windows
	s.streakList = streaks
	s.mu.Unlock()

	return nil
}

func (s *store) AllUsers() []*entity.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entity.User, len(s.userList))
	copy(out, s.userList)
	return out
}

func (s *store) UserByID(userID int64) *entity.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userByID[userID]
}

func (s *store) HabitsForMonth(userID int64, yearMonth string) []*entity.Habit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*entity.Habit
	for _, h := range s.habitList {
		if h.UserID == userID && h.YearMonth == yearMonth {
			out = append(out, h)
		}
	}
	return out
}

func (s *store) HasCoreHabits(userID int64, yearMonth string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, h := range s.habitList {
		if h.UserID == userID && h.YearMonth == yearMonth && h.IsCore() {
			return true
		}
	}
	return false
}

func (s *store) HasCheckedIn(userID int64, date string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checkedIn[checkinKey(userID, date)]
}

func (s *store) CheckinsForDate(userID int64, date string) []*entity.CheckinRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*entity.CheckinRecord
	for _, rec := range s.checkinList {
		if rec.UserID == userID && rec.ForDate == date {
			out = append(out, rec)
		}
	}
	return out
}

func (s *store) LastCheckins(userID int64, habitID uuid.UUID, beforeDate string, limit int) []*entity.CheckinRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	// checkinList is ordered by for_date ascending, so walking backwards
	// yields most-recent-first.
	var out []*entity.CheckinRecord
	for i := len(s.checkinList) - 1; i >= 0 && len(out) < limit; i-- {
		rec := s.checkinList[i]
		if rec.UserID == userID && rec.HabitID == habitID && rec.ForDate < beforeDate {
			out = append(out, rec)
		}
	}
	return out
}

func (s *store) InDndWindow(userID int64, date string, habitID uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, w := range s.dndList {
		if w.UserID == userID && w.HabitID == habitID && w.Contains(date) {
			return true
		}
	}
	return false
}

func (s *store) DndWindows(userID int64) []*entity.DndWindow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*entity.DndWindow
	for _, w := range s.dndList {
		if w.UserID == userID {
			out = append(out, w)
		}
	}
	return out
}

func (s *store) StreakRows(date string) []*entity.StreakEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*entity.StreakEntry
	for _, e := range s.streakList {
		if e.ForDate == date {
			out = append(out, e)
		}
	}
	return out
}

func (s *store) LatestStreaks() []*entity.StreakEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	// streakList is ordered ascending, so the last entry seen per user
	// is the latest one.
	latest := make(map[int64]*entity.StreakEntry)
	for _, e := range s.streakList {
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

func (s *store) LatestScore(userID int64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.streakList) - 1; i >= 0; i-- {
		if s.streakList[i].UserID == userID {
			return s.streakList[i].Score
		}
	}
	return 0
}

func (s *store) UpsertUser(ctx context.Context, u *entity.User) error {
	return s.users.Upsert(ctx, u)
}

func (s *store) AddHabits(ctx context.Context, habits []*entity.Habit) error {
	return s.habits.CreateBatch(ctx, habits)
}

func (s *store) AppendCheckins(ctx context.Context, batch []*entity.CheckinRecord) error {
	return s.checkins.CreateBatch(ctx, batch)
}

func (s *store) AppendStreak(ctx context.Context, e *entity.StreakEntry) error {
	return s.streaks.Create(ctx, e)
}

func (s *store) AddDndWindow(ctx context.Context, w *entity.DndWindow) error {
	return s.dnd.Create(ctx, w)
}

func (s *store) UpdateDndWindow(ctx context.Context, id uuid.UUID, upd entity.DndWindowUpdate) error {
	return s.dnd.Update(ctx, id, upd)
}

func (s *store) DeleteDndWindow(ctx context.Context, id uuid.UUID) error {
	return s.dnd.Delete(ctx, id)
}

func checkinKey(userID int64, date string) string {
	return fmt.Sprintf("%d|%s", userID, date)
}
