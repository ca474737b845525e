package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kbehari1995/habit-snake-bot/internal/domain/entity"
	"github.com/kbehari1995/habit-snake-bot/internal/domain/repository"
)

type checkinRepository struct {
	pool *pgxpool.Pool
}

// NewCheckinRepository creates a new PostgreSQL check-in repository
func NewCheckinRepository(pool *pgxpool.Pool) repository.CheckinRepository {
	return &checkinRepository{pool: pool}
}

// CreateBatch writes one day's answers in a single transaction so a
// partial check-in can never be observed.
func (r *checkinRepository) CreateBatch(ctx context.Context, batch []*entity.CheckinRecord) error {
	if len(batch) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO core_habit_log (
			id, user_id, username, habit_id, habit_text,
			for_date, year_month, status, marked_by, created_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10
		)
	`

	for _, rec := range batch {
		_, err := tx.Exec(ctx, query,
			rec.ID, rec.UserID, rec.Username, rec.HabitID, rec.HabitText,
			rec.ForDate, rec.YearMonth, rec.Status, rec.MarkedBy, rec.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create check-in record: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit check-in batch: %w", err)
	}

	return nil
}

func (r *checkinRepository) List(ctx context.Context) ([]*entity.CheckinRecord, error) {
	query := `
		SELECT
			id, user_id, username, habit_id, habit_text,
			for_date, year_month, status, marked_by, created_at
		FROM core_habit_log
		ORDER BY for_date ASC, created_at ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list check-in records: %w", err)
	}
	defer rows.Close()

	var records []*entity.CheckinRecord
	for rows.Next() {
		rec := &entity.CheckinRecord{}
		err := rows.Scan(
			&rec.ID, &rec.UserID, &rec.Username, &rec.HabitID, &rec.HabitText,
			&rec.ForDate, &rec.YearMonth, &rec.Status, &rec.MarkedBy, &rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan check-in record: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate check-in records: %w", err)
	}

	return records, nil
}
