package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbehari1995/habit-snake-bot/internal/domain/entity"
	"github.com/kbehari1995/habit-snake-bot/internal/domain/repository"
)

// In-memory repositories backing the snapshot under test.

type memUserRepo struct{ rows []*entity.User }

func (r *memUserRepo) Upsert(ctx context.Context, u *entity.User) error {
	for i, existing := range r.rows {
		if existing.ID == u.ID {
			r.rows[i] = u
			return nil
		}
	}
	r.rows = append(r.rows, u)
	return nil
}

func (r *memUserRepo) List(ctx context.Context) ([]*entity.User, error) { return r.rows, nil }

type memHabitRepo struct{ rows []*entity.Habit }

func (r *memHabitRepo) CreateBatch(ctx context.Context, habits []*entity.Habit) error {
	r.rows = append(r.rows, habits...)
	return nil
}

func (r *memHabitRepo) List(ctx context.Context) ([]*entity.Habit, error) { return r.rows, nil }

type memCheckinRepo struct{ rows []*entity.CheckinRecord }

func (r *memCheckinRepo) CreateBatch(ctx context.Context, batch []*entity.CheckinRecord) error {
	r.rows = append(r.rows, batch...)
	return nil
}

func (r *memCheckinRepo) List(ctx context.Context) ([]*entity.CheckinRecord, error) {
	return r.rows, nil
}

type memDndRepo struct{ rows []*entity.DndWindow }

func (r *memDndRepo) Create(ctx context.Context, w *entity.DndWindow) error {
	r.rows = append(r.rows, w)
	return nil
}

func (r *memDndRepo) Update(ctx context.Context, id uuid.UUID, upd entity.DndWindowUpdate) error {
	for _, w := range r.rows {
		if w.ID == id {
			upd.Apply(w)
			return nil
		}
	}
	return nil
}

func (r *memDndRepo) Delete(ctx context.Context, id uuid.UUID) error {
	for i, w := range r.rows {
		if w.ID == id {
			r.rows = append(r.rows[:i], r.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *memDndRepo) List(ctx context.Context) ([]*entity.DndWindow, error) { return r.rows, nil }

type memStreakRepo struct{ rows []*entity.StreakEntry }

func (r *memStreakRepo) Create(ctx context.Context, e *entity.StreakEntry) error {
	r.rows = append(r.rows, e)
	return nil
}

func (r *memStreakRepo) List(ctx context.Context) ([]*entity.StreakEntry, error) { return r.rows, nil }

func newTestStore() repository.Store {
	return NewStore(&memUserRepo{}, &memHabitRepo{}, &memCheckinRepo{}, &memDndRepo{}, &memStreakRepo{})
}

func record(userID int64, habitID uuid.UUID, date string, status entity.Status) *entity.CheckinRecord {
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

func TestStoreWritesVisibleAfterRefresh(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	require.NoError(t, store.Refresh(ctx))

	habitID := uuid.New()
	require.NoError(t, store.AppendCheckins(ctx, []*entity.CheckinRecord{
		record(1, habitID, "2025-07-07", entity.StatusDone),
	}))

	// The snapshot is stale until the explicit reload.
	assert.False(t, store.HasCheckedIn(1, "2025-07-07"))
	require.NoError(t, store.Refresh(ctx))
	assert.True(t, store.HasCheckedIn(1, "2025-07-07"))
	assert.Len(t, store.CheckinsForDate(1, "2025-07-07"), 1)
}

func TestStoreLastCheckinsOrderAndLimit(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	habitID := uuid.New()

	var batch []*entity.CheckinRecord
	for day := 1; day <= 8; day++ {
		d := time.Date(2025, 7, day, 0, 0, 0, 0, time.UTC)
		batch = append(batch, record(1, habitID, entity.FormatDate(d), entity.StatusDone))
	}
	require.NoError(t, store.AppendCheckins(ctx, batch))
	require.NoError(t, store.Refresh(ctx))

	recent := store.LastCheckins(1, habitID, "2025-07-08", 6)
	require.Len(t, recent, 6)
	assert.Equal(t, "2025-07-07", recent[0].ForDate, "most recent first")
	assert.Equal(t, "2025-07-02", recent[5].ForDate)
}

func TestStoreHabitsForMonth(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	require.NoError(t, store.AddHabits(ctx, []*entity.Habit{
		{ID: uuid.New(), UserID: 1, YearMonth: "202507", Text: "Workout", Type: entity.HabitTypeCore},
		{ID: uuid.New(), UserID: 1, YearMonth: "202506", Text: "Old", Type: entity.HabitTypeCore},
		{ID: uuid.New(), UserID: 2, YearMonth: "202507", Text: "Other user", Type: entity.HabitTypeCore},
	}))
	require.NoError(t, store.Refresh(ctx))

	habits := store.HabitsForMonth(1, "202507")
	require.Len(t, habits, 1)
	assert.Equal(t, "Workout", habits[0].Text)
	assert.True(t, store.HasCoreHabits(1, "202507"))
	assert.False(t, store.HasCoreHabits(1, "202508"))
}

func TestStoreDndWindows(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	habitID := uuid.New()
	windowID := uuid.New()

	require.NoError(t, store.AddDndWindow(ctx, &entity.DndWindow{
		ID: windowID, UserID: 1, HabitID: habitID,
		StartDate: "2025-07-10", EndDate: "2025-07-12",
	}))
	require.NoError(t, store.Refresh(ctx))

	assert.True(t, store.InDndWindow(1, "2025-07-10", habitID))
	assert.False(t, store.InDndWindow(1, "2025-07-13", habitID))
	assert.Len(t, store.DndWindows(1), 1)
	assert.Empty(t, store.DndWindows(2))

	newEnd := "2025-07-14"
	require.NoError(t, store.UpdateDndWindow(ctx, windowID, entity.DndWindowUpdate{EndDate: &newEnd}))
	require.NoError(t, store.Refresh(ctx))
	assert.True(t, store.InDndWindow(1, "2025-07-13", habitID))

	require.NoError(t, store.DeleteDndWindow(ctx, windowID))
	require.NoError(t, store.Refresh(ctx))
	assert.Empty(t, store.DndWindows(1))
}

func TestStoreLatestStreaks(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	entries := []*entity.StreakEntry{
		{ID: uuid.New(), UserID: 1, Username: "kb", ForDate: "2025-07-06", Score: 1, Delta: 1},
		{ID: uuid.New(), UserID: 1, Username: "kb", ForDate: "2025-07-07", Score: 2, Delta: 1},
		{ID: uuid.New(), UserID: 2, Username: "ana", ForDate: "2025-07-07", Score: 5, Delta: 1},
	}
	for _, e := range entries {
		require.NoError(t, store.AppendStreak(ctx, e))
	}
	require.NoError(t, store.Refresh(ctx))

	latest := store.LatestStreaks()
	require.Len(t, latest, 2)
	assert.Equal(t, "ana", latest[0].Username, "highest score first")
	assert.Equal(t, 2, latest[1].Score, "only the latest entry per user")

	assert.Equal(t, 2, store.LatestScore(1))
	assert.Equal(t, 0, store.LatestScore(99))
}
