package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kbehari1995/habit-snake-bot/internal/domain/entity"
	"github.com/kbehari1995/habit-snake-bot/internal/domain/repository"
)

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PostgreSQL user repository
func NewUserRepository(pool *pgxpool.Pool) repository.UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) Upsert(ctx context.Context, u *entity.User) error {
	query := `
		INSERT INTO users (
			id, username, nickname, timezone, email, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			nickname = EXCLUDED.nickname,
			timezone = EXCLUDED.timezone,
			email = EXCLUDED.email
	`

	_, err := r.pool.Exec(ctx, query,
		u.ID, u.Username, u.Nickname, u.Timezone, u.Email, u.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	return nil
}

func (r *userRepository) List(ctx context.Context) ([]*entity.User, error) {
	query := `
		SELECT id, username, nickname, timezone, email, created_at
		FROM users
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*entity.User
	for rows.Next() {
		user := &entity.User{}
		err := rows.Scan(
			&user.ID, &user.Username, &user.Nickname, &user.Timezone, &user.Email, &user.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, nil
}
