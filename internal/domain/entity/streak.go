package entity

import (
	"time"

	"github.com/google/uuid"
)

// StreakEntry is one row of the append-only streak ledger. The score
// grows by one on a full completion and shrinks by the miss count
// otherwise; days where every habit was DND-excused append nothing.
type StreakEntry struct {
	ID        uuid.UUID
	UserID    int64
	Username  string
	ForDate   string
	Score     int
	Delta     int
	CreatedAt time.Time
}
