package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kbehari1995/habit-snake-bot/internal/domain/entity"
	"github.com/kbehari1995/habit-snake-bot/internal/domain/repository"
)

type dndRepository struct {
	pool *pgxpool.Pool
}

// NewDndRepository creates a new PostgreSQL DND window repository
func NewDndRepository(pool *pgxpool.Pool) repository.DndRepository {
	return &dndRepository{pool: pool}
}

func (r *dndRepository) Create(ctx context.Context, w *entity.DndWindow) error {
	query := `
		INSERT INTO dnd_log (
			id, user_id, habit_id, habit_text, year_month,
			start_date, end_date, created_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8
		)
	`

	_, err := r.pool.Exec(ctx, query,
		w.ID, w.UserID, w.HabitID, w.HabitText, w.YearMonth,
		w.StartDate, w.EndDate, w.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create DND window: %w", err)
	}

	return nil
}

func (r *dndRepository) Update(ctx context.Context, id uuid.UUID, upd entity.DndWindowUpdate) error {
	query := `
		UPDATE dnd_log SET
			habit_id = COALESCE($1, habit_id),
			habit_text = COALESCE($2, habit_text),
			start_date = COALESCE($3, start_date),
			end_date = COALESCE($4, end_date)
		WHERE id = $5
	`

	result, err := r.pool.Exec(ctx, query,
		upd.HabitID, upd.HabitText, upd.StartDate, upd.EndDate, id,
	)

	if err != nil {
		return fmt.Errorf("failed to update DND window: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("DND window not found")
	}

	return nil
}

func (r *dndRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM dnd_log WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete DND window: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("DND window not found")
	}

	return nil
}

func (r *dndRepository) List(ctx context.Context) ([]*entity.DndWindow, error) {
	query := `
		SELECT
			id, user_id, habit_id, habit_text, year_month,
			start_date, end_date, created_at
		FROM dnd_log
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list DND windows: %w", err)
	}
	defer rows.Close()

	var windows []*entity.DndWindow
	for rows.Next() {
		w := &entity.DndWindow{}
		err := rows.Scan(
			&w.ID, &w.UserID, &w.HabitID, &w.HabitText, &w.YearMonth,
			&w.StartDate, &w.EndDate, &w.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan DND window: %w", err)
		}
		windows = append(windows, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate DND windows: %w", err)
	}

	return windows, nil
}
