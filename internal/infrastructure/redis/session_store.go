package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kbehari1995/habit-snake-bot/internal/config"
	"github.com/kbehari1995/habit-snake-bot/internal/domain/entity"
	"github.com/kbehari1995/habit-snake-bot/internal/domain/repository"
)

// NewClient creates a Redis client and verifies the connection.
func NewClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

// sessionStore keeps conversation sessions in Redis as JSON values with
// a TTL; an expired key reads back as no session.
type sessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore creates a Redis-backed session store.
func NewSessionStore(client *redis.Client, ttl time.Duration) repository.SessionStore {
	return &sessionStore{client: client, ttl: ttl}
}

func (s *sessionStore) checkinKey(userID int64) string {
	return fmt.Sprintf("checkin:%d", userID)
}

func (s *sessionStore) dndKey(userID int64) string {
	return fmt.Sprintf("dnd:%d", userID)
}

func (s *sessionStore) habitsKey(userID int64) string {
	return fmt.Sprintf("habits:%d", userID)
}

func (s *sessionStore) get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("failed to get session: %w", err)
	}
	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return true, nil
}

func (s *sessionStore) set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (s *sessionStore) delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *sessionStore) CheckinSession(ctx context.Context, userID int64) (*entity.CheckinSession, error) {
	var sess entity.CheckinSession
	found, err := s.get(ctx, s.checkinKey(userID), &sess)
	if err != nil || !found {
		return nil, err
	}
	return &sess, nil
}

func (s *sessionStore) SaveCheckinSession(ctx context.Context, sess *entity.CheckinSession) error {
	return s.set(ctx, s.checkinKey(sess.UserID), sess)
}

func (s *sessionStore) DeleteCheckinSession(ctx context.Context, userID int64) error {
	return s.delete(ctx, s.checkinKey(userID))
}

func (s *sessionStore) DndSession(ctx context.Context, userID int64) (*entity.DndSession, error) {
	var sess entity.DndSession
	found, err := s.get(ctx, s.dndKey(userID), &sess)
	if err != nil || !found {
		return nil, err
	}
	return &sess, nil
}

func (s *sessionStore) SaveDndSession(ctx context.Context, sess *entity.DndSession) error {
	return s.set(ctx, s.dndKey(sess.UserID), sess)
}

func (s *sessionStore) DeleteDndSession(ctx context.Context, userID int64) error {
	return s.delete(ctx, s.dndKey(userID))
}

func (s *sessionStore) HabitSetupSession(ctx context.Context, userID int64) (*entity.HabitSetupSession, error) {
	var sess entity.HabitSetupSession
	found, err := s.get(ctx, s.habitsKey(userID), &sess)
	if err != nil || !found {
		return nil, err
	}
	return &sess, nil
}

func (s *sessionStore) SaveHabitSetupSession(ctx context.Context, sess *entity.HabitSetupSession) error {
	return s.set(ctx, s.habitsKey(sess.UserID), sess)
}

func (s *sessionStore) DeleteHabitSetupSession(ctx context.Context, userID int64) error {
	return s.delete(ctx, s.habitsKey(userID))
}
