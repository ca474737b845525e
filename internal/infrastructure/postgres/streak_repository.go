package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kbehari1995/habit-snake-bot/internal/domain/entity"
	"github.com/kbehari1995/habit-snake-bot/internal/domain/repository"
)

type streakRepository struct {
	pool *pgxpool.Pool
}

// NewStreakRepository creates a new PostgreSQL streak ledger repository
func NewStreakRepository(pool *pgxpool.Pool) repository.StreakRepository {
	return &streakRepository{pool: pool}
}

func (r *streakRepository) Create(ctx context.Context, e *entity.StreakEntry) error {
	query := `
		INSERT INTO daily_score_log (
			id, user_id, username, for_date, score, delta, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
	`

	_, err := r.pool.Exec(ctx, query,
		e.ID, e.UserID, e.Username, e.ForDate, e.Score, e.Delta, e.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create streak entry: %w", err)
	}

	return nil
}

func (r *streakRepository) List(ctx context.Context) ([]*entity.StreakEntry, error) {
	query := `
		SELECT id, user_id, username, for_date, score, delta, created_at
		FROM daily_score_log
		ORDER BY for_date ASC, created_at ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list streak entries: %w", err)
	}
	defer rows.Close()

	var entries []*entity.StreakEntry
	for rows.Next() {
		e := &entity.StreakEntry{}
		err := rows.Scan(
			&e.ID, &e.UserID, &e.Username, &e.ForDate, &e.Score, &e.Delta, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan streak entry: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate streak entries: %w", err)
	}

	return entries, nil
}
