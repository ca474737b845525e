package entity

import (
	"time"

	"github.com/google/uuid"
)

// HabitType distinguishes the fixed monthly core habits from optional
// bonus habits. Only core habits participate in daily check-ins.
type HabitType string

const (
	HabitTypeCore  HabitType = "core"
	HabitTypeBonus HabitType = "bonus"
)

// Habit belongs to exactly one (user, calendar-month) pair. Core habits
// for a month are immutable once saved.
type Habit struct {
	ID        uuid.UUID
	UserID    int64
	YearMonth string // "200601"
	Text      string
	Type      HabitType
	CreatedAt time.Time
}

// IsCore returns true for core habits.
func (h *Habit) IsCore() bool {
	return h.Type == HabitTypeCore
}

// HabitRef is the (id, text) pair a conversation session carries for
// each habit it asks about.
type HabitRef struct {
	ID   uuid.UUID `json:"id"`
	Text string    `json:"text"`
}
