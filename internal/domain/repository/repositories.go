package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/kbehari1995/habit-snake-bot/internal/domain/entity"
)

// Per-table persistence interfaces. The snapshot store composes these;
// List methods feed its Refresh.

// UserRepository persists registered users.
type UserRepository interface {
	Upsert(ctx context.Context, u *entity.User) error
	List(ctx context.Context) ([]*entity.User, error)
}

// HabitRepository persists the per-month habit configuration.
type HabitRepository interface {
	CreateBatch(ctx context.Context, habits []*entity.Habit) error
	List(ctx context.Context) ([]*entity.Habit, error)
}

// CheckinRepository persists the check-in log.
type CheckinRepository interface {
	CreateBatch(ctx context.Context, batch []*entity.CheckinRecord) error
	List(ctx context.Context) ([]*entity.CheckinRecord, error)
}

// DndRepository persists DND windows.
type DndRepository interface {
	Create(ctx context.Context, w *entity.DndWindow) error
	Update(ctx context.Context, id uuid.UUID, upd entity.DndWindowUpdate) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*entity.DndWindow, error)
}

// StreakRepository persists the append-only streak ledger.
type StreakRepository interface {
	Create(ctx context.Context, e *entity.StreakEntry) error
	List(ctx context.Context) ([]*entity.StreakEntry, error)
}
