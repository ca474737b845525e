package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kbehari1995/habit-snake-bot/internal/domain/entity"
	"github.com/kbehari1995/habit-snake-bot/internal/domain/repository"
)

type habitRepository struct {
	pool *pgxpool.Pool
}

// NewHabitRepository creates a new PostgreSQL habit repository
func NewHabitRepository(pool *pgxpool.Pool) repository.HabitRepository {
	return &habitRepository{pool: pool}
}

func (r *habitRepository) CreateBatch(ctx context.Context, habits []*entity.Habit) error {
	if len(habits) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO habits (
			id, user_id, year_month, text, type, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
	`

	for _, habit := range habits {
		_, err := tx.Exec(ctx, query,
			habit.ID, habit.UserID, habit.YearMonth, habit.Text, habit.Type, habit.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create habit: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit habits: %w", err)
	}

	return nil
}

func (r *habitRepository) List(ctx context.Context) ([]*entity.Habit, error) {
	query := `
		SELECT id, user_id, year_month, text, type, created_at
		FROM habits
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list habits: %w", err)
	}
	defer rows.Close()

	var habits []*entity.Habit
	for rows.Next() {
		habit := &entity.Habit{}
		err := rows.Scan(
			&habit.ID, &habit.UserID, &habit.YearMonth, &habit.Text, &habit.Type, &habit.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan habit: %w", err)
		}
		habits = append(habits, habit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate habits: %w", err)
	}

	return habits, nil
}
