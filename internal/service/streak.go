package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kbehari1995/habit-snake-bot/internal/domain/entity"
	"github.com/kbehari1995/habit-snake-bot/internal/domain/repository"
)

// StreakLedger appends derived daily scores to the streak log. Both the
// check-in flow and the scheduler's auto-mark record through it.
type StreakLedger struct {
	store repository.Store
}

// NewStreakLedger creates a streak ledger over the store.
func NewStreakLedger(store repository.Store) *StreakLedger {
	return &StreakLedger{store: store}
}

// Record appends the entry for one committed check-in day: previous
// score +1 on zero misses, minus the miss count otherwise. Days where
// every habit was DND-excused must not be recorded at all; callers
// skip them.
func (l *StreakLedger) Record(ctx context.Context, userID int64, username, date string, misses int) error {
	delta := 1
	if misses > 0 {
		delta = -misses
	}
	entry := &entity.StreakEntry{
		ID:        uuid.New(),
		UserID:    userID,
		Username:  username,
		ForDate:   date,
		Score:     l.store.LatestScore(userID) + delta,
		Delta:     delta,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.store.AppendStreak(ctx, entry); err != nil {
		return fmt.Errorf("failed to append streak entry: %w", err)
	}
	return nil
}

// FormatLeaderboard renders the channel summary from the latest score
// per user.
func FormatLeaderboard(rows []*entity.StreakEntry, dayNumber int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Day %d log\n", dayNumber)
	for _, r := range rows {
		fmt.Fprintf(&b, "\n%s: %s", r.Username, scoreGlyphs(r.Score))
	}
	b.WriteString("\n\nLet's do this!")
	return b.String()
}

func scoreGlyphs(score int) string {
	switch {
	case score > 0:
		return strings.Repeat("🔵", score)
	case score < 0:
		return "🪦"
	default:
		return ""
	}
}
