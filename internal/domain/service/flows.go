package service

import (
	"context"

	"github.com/google/uuid"
)

// Eligibility decides per-habit handling for a date. Pure reads of
// store state, no side effects.
type Eligibility interface {
	// IsDndExcused is true iff any DND window for (user, habit)
	// contains date.
	IsDndExcused(userID int64, date string, habitID uuid.UUID) bool
	// IsRestDayEligible is true iff exactly six records exist for
	// (user, habit) strictly before date and all are done.
	IsRestDayEligible(userID int64, habitID uuid.UUID, date string) bool
	// HasCheckedIn is the coarse per-day gate.
	HasCheckedIn(userID int64, date string) bool
}

// CheckinFlow is the check-in conversation state machine.
type CheckinFlow interface {
	Start(ctx context.Context, userID int64, username string) error
	HandleCallback(ctx context.Context, userID int64, data string) error
}

// DndFlow is the DND window editor state machine. HandleText reports
// whether the text belonged to this flow.
type DndFlow interface {
	Start(ctx context.Context, userID int64, username string) error
	HandleCallback(ctx context.Context, userID int64, data string) error
	HandleText(ctx context.Context, userID int64, text string) (bool, error)
}

// HabitSetupFlow is the one-time monthly core habit declaration.
type HabitSetupFlow interface {
	Start(ctx context.Context, userID int64, username string) error
	HandleCallback(ctx context.Context, userID int64, data string) error
	HandleText(ctx context.Context, userID int64, text string) (bool, error)
}

// ReminderResetter clears a user's reminder/auto-mark escalation state;
// the check-in flow invokes it when yesterday's check-in lands.
type ReminderResetter interface {
	ClearReminder(userID int64)
}
