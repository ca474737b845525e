package entity

import (
	"time"

	"github.com/google/uuid"
)

// DndWindow excuses one habit from check-ins for an inclusive date
// range. Invariant: StartDate <= EndDate.
type DndWindow struct {
	ID        uuid.UUID `json:"id"`
	UserID    int64     `json:"user_id"`
	HabitID   uuid.UUID `json:"habit_id"`
	HabitText string    `json:"habit_text"`
	YearMonth string    `json:"year_month"`
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
	CreatedAt time.Time `json:"created_at"`
}

// Contains reports whether date falls within the window, inclusive on
// both ends.
func (w *DndWindow) Contains(date string) bool {
	return w.StartDate <= date && date <= w.EndDate
}

// DndWindowUpdate carries the changed fields of a window edit; nil
// fields are left untouched.
type DndWindowUpdate struct {
	HabitID   *uuid.UUID `json:"habit_id,omitempty"`
	HabitText *string    `json:"habit_text,omitempty"`
	StartDate *string    `json:"start_date,omitempty"`
	EndDate   *string    `json:"end_date,omitempty"`
}

// Apply folds the update into w.
func (u *DndWindowUpdate) Apply(w *DndWindow) {
	if u.HabitID != nil {
		w.HabitID = *u.HabitID
	}
	if u.HabitText != nil {
		w.HabitText = *u.HabitText
	}
	if u.StartDate != nil {
		w.StartDate = *u.StartDate
	}
	if u.EndDate != nil {
		w.EndDate = *u.EndDate
	}
}
