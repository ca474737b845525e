package entity

import (
	"time"

	"github.com/google/uuid"
)

// Status is the recorded outcome for one (user, date, habit).
type Status string

const (
	StatusDone   Status = "done"
	StatusMissed Status = "missed"
	StatusRest   Status = "rest"
	StatusDnd    Status = "dnd"
)

// Marker records how a check-in row was produced.
type Marker string

const (
	MarkedManual Marker = "manual"
	MarkedAuto   Marker = "auto"
)

// CheckinRecord is one row of the check-in log. A check-in batch writes
// one record per core habit for the date; "has the user checked in" is
// evaluated at the date level, not per habit.
type CheckinRecord struct {
	ID        uuid.UUID
	UserID    int64
	Username  string
	HabitID   uuid.UUID
	HabitText string
	ForDate   string
	YearMonth string
	Status    Status
	MarkedBy  Marker
	CreatedAt time.Time
}
