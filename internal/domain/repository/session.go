package repository

import (
	"context"

	"github.com/kbehari1995/habit-snake-bot/internal/domain/entity"
)

// SessionStore keeps per-user conversation state between steps. Lookups
// return (nil, nil) when no session exists. Implementations expire
// entries after a TTL, which is how abandoned sessions are reaped.
type SessionStore interface {
	CheckinSession(ctx context.Context, userID int64) (*entity.CheckinSession, error)
	SaveCheckinSession(ctx context.Context, s *entity.CheckinSession) error
	DeleteCheckinSession(ctx context.Context, userID int64) error

	DndSession(ctx context.Context, userID int64) (*entity.DndSession, error)
	SaveDndSession(ctx context.Context, s *entity.DndSession) error
	DeleteDndSession(ctx context.Context, userID int64) error

	HabitSetupSession(ctx context.Context, userID int64) (*entity.HabitSetupSession, error)
	SaveHabitSetupSession(ctx context.Context, s *entity.HabitSetupSession) error
	DeleteHabitSetupSession(ctx context.Context, userID int64) error
}
