package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/kbehari1995/habit-snake-bot/internal/domain/entity"
)

// Store is the read/write surface the conversation flows and the
// scheduler work against. Reads are served from an in-memory snapshot
// and cannot fail; writes go to the backing store, and callers must
// Refresh before the next read that depends on them.
type Store interface {
	// Refresh reloads the snapshot from the backing store.
	Refresh(ctx context.Context) error

	AllUsers() []*entity.User
	// UserByID returns nil when the user is not registered.
	UserByID(userID int64) *entity.User

	// HabitsForMonth returns the user's habits for a month key in
	// creation order.
	HabitsForMonth(userID int64, yearMonth string) []*entity.Habit
	HasCoreHabits(userID int64, yearMonth string) bool

	// HasCheckedIn is the date-level gate: true iff any check-in
	// record exists for (user, date).
	HasCheckedIn(userID int64, date string) bool
	CheckinsForDate(userID int64, date string) []*entity.CheckinRecord
	// LastCheckins returns up to limit records for (user, habit)
	// strictly before date, most recent first.
	LastCheckins(userID int64, habitID uuid.UUID, beforeDate string, limit int) []*entity.CheckinRecord

	InDndWindow(userID int64, date string, habitID uuid.UUID) bool
	DndWindows(userID int64) []*entity.DndWindow

	StreakRows(date string) []*entity.StreakEntry
	// LatestStreaks returns each user's most recent ledger entry,
	// highest score first.
	LatestStreaks() []*entity.StreakEntry
	LatestScore(userID int64) int

	UpsertUser(ctx context.Context, u *entity.User) error
	AddHabits(ctx context.Context, habits []*entity.Habit) error
	AppendCheckins(ctx context.Context, batch []*entity.CheckinRecord) error
	AppendStreak(ctx context.Context, e *entity.StreakEntry) error
	AddDndWindow(ctx context.Context, w *entity.DndWindow) error
	UpdateDndWindow(ctx context.Context, id uuid.UUID, upd entity.DndWindowUpdate) error
	DeleteDndWindow(ctx context.Context, id uuid.UUID) error
}
