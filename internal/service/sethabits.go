package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kbehari1995/habit-snake-bot/internal/domain/entity"
	"github.com/kbehari1995/habit-snake-bot/internal/domain/repository"
	"github.com/kbehari1995/habit-snake-bot/internal/domain/service"
	"github.com/kbehari1995/habit-snake-bot/pkg/clock"
)

const (
	cbHabits = "habits" // confirm | cancel

	maxCoreHabits = 5
)

type habitSetupFlow struct {
	store    repository.Store
	sessions repository.SessionStore
	notifier service.Notifier
	clock    clock.Clock
}

// NewHabitSetupFlow creates the monthly core habit declaration flow.
// Core habits can be set once per calendar month and are immutable
// afterwards.
func NewHabitSetupFlow(
	store repository.Store,
	sessions repository.SessionStore,
	notifier service.Notifier,
	clk clock.Clock,
) service.HabitSetupFlow {
	return &habitSetupFlow{store: store, sessions: sessions, notifier: notifier, clock: clk}
}

func (f *habitSetupFlow) Start(ctx context.Context, userID int64, username string) error {
	if err := f.store.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to refresh store: %w", err)
	}

	now := f.clock.Now()
	month := now.Format(entity.YearMonthLayout)
	if f.store.HasCoreHabits(userID, month) {
		return f.notifier.SendToUser(ctx, userID,
			"Your core habits for this month are already set. They cannot be changed until next month.", nil)
	}

	user := f.store.UserByID(userID)
	if user == nil {
		user = &entity.User{ID: userID, Username: username, CreatedAt: now.UTC()}
		if err := f.store.UpsertUser(ctx, user); err != nil {
			return fmt.Errorf("failed to register user %d: %w", userID, err)
		}
	}

	sess := &entity.HabitSetupSession{
		UserID:    userID,
		Username:  username,
		Stage:     entity.HabitSetupAwaitingList,
		YearMonth: month,
	}
	if err := f.sessions.SaveHabitSetupSession(ctx, sess); err != nil {
		return fmt.Errorf("failed to save habit setup session: %w", err)
	}
	return f.notifier.SendToUser(ctx, userID, fmt.Sprintf(
		"Send your core habits for %s, one per line (up to %d).\n\nExample:\nWorkout\nRead 20 pages\nSleep by 11pm",
		now.Format("January 2006"), maxCoreHabits), nil)
}

// HandleText consumes the habit list while the session awaits one.
func (f *habitSetupFlow) HandleText(ctx context.Context, userID int64, text string) (bool, error) {
	sess, err := f.sessions.HabitSetupSession(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to load habit setup session: %w", err)
	}
	if sess == nil || sess.Stage != entity.HabitSetupAwaitingList {
		return false, nil
	}

	var habits []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			habits = append(habits, line)
		}
	}
	if len(habits) == 0 {
		return true, f.notifier.SendToUser(ctx, userID,
			"I could not find any habits in that message. Send one habit per line.", nil)
	}
	if len(habits) > maxCoreHabits {
		return true, f.notifier.SendToUser(ctx, userID, fmt.Sprintf(
			"That is %d habits; the limit is %d. Trim the list and send it again.",
			len(habits), maxCoreHabits), nil)
	}

	sess.Habits = habits
	sess.Stage = entity.HabitSetupConfirming
	if err := f.sessions.SaveHabitSetupSession(ctx, sess); err != nil {
		return true, fmt.Errorf("failed to save habit setup session: %w", err)
	}
	kb := service.Keyboard{
		{{Label: "Confirm", Data: cbHabits + "|confirm"}},
		{{Label: "Cancel", Data: cbHabits + "|cancel"}},
	}
	return true, f.notifier.SendToUser(ctx, userID, fmt.Sprintf(
		"Your core habits for the month:\n%s\n\nOnce confirmed they cannot be changed until next month. Confirm?",
		bulletList(habits)), kb)
}

func (f *habitSetupFlow) HandleCallback(ctx context.Context, userID int64, data string) error {
	sess, err := f.sessions.HabitSetupSession(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load habit setup session: %w", err)
	}
	if sess == nil {
		return f.notifier.EditLastMessage(ctx, userID,
			"No habit setup session found. Use /sethabits to start.", nil)
	}

	prefix, value, ok := strings.Cut(data, "|")
	if !ok || prefix != cbHabits || sess.Stage != entity.HabitSetupConfirming {
		return nil
	}
	if value != "confirm" {
		_ = f.sessions.DeleteHabitSetupSession(ctx, userID)
		return f.notifier.EditLastMessage(ctx, userID, "Habit setup cancelled.", nil)
	}
	return f.commit(ctx, sess)
}

func (f *habitSetupFlow) commit(ctx context.Context, sess *entity.HabitSetupSession) error {
	// Another worker may have committed between the prompt and the
	// confirmation, so the one-time invariant is re-checked here.
	if err := f.store.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to refresh store: %w", err)
	}
	if f.store.HasCoreHabits(sess.UserID, sess.YearMonth) {
		_ = f.sessions.DeleteHabitSetupSession(ctx, sess.UserID)
		return f.notifier.EditLastMessage(ctx, sess.UserID,
			"Your core habits for this month are already set.", nil)
	}

	now := f.clock.Now()
	habits := make([]*entity.Habit, 0, len(sess.Habits))
	for _, text := range sess.Habits {
		habits = append(habits, &entity.Habit{
			ID:        uuid.New(),
			UserID:    sess.UserID,
			YearMonth: sess.YearMonth,
			Text:      text,
			Type:      entity.HabitTypeCore,
			CreatedAt: now.UTC(),
		})
	}
	if err := f.store.AddHabits(ctx, habits); err != nil {
		return fmt.Errorf("failed to save habits for user %d: %w", sess.UserID, err)
	}
	if err := f.store.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to refresh store: %w", err)
	}
	_ = f.sessions.DeleteHabitSetupSession(ctx, sess.UserID)

	if err := f.notifier.EditLastMessage(ctx, sess.UserID, fmt.Sprintf(
		"Core habits locked in for %s:\n%s", now.Format("January 2006"), bulletList(sess.Habits)), nil); err != nil {
		return err
	}
	return f.notifier.SendToChannel(ctx, fmt.Sprintf(
		"%s set %d core habit(s) for %s. The snake is watching. 🐍",
		sess.Username, len(sess.Habits), now.Format("January 2006")))
}
