package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kbehari1995/habit-snake-bot/internal/domain/entity"
	"github.com/kbehari1995/habit-snake-bot/internal/domain/repository"
	"github.com/kbehari1995/habit-snake-bot/internal/domain/service"
	"github.com/kbehari1995/habit-snake-bot/pkg/clock"
)

// maxReminders is the reminder cap before the pass just waits for the
// auto-mark deadline.
const maxReminders = 3

// autoMarkWindow is the minimum spacing between auto-marks for one user.
const autoMarkWindow = 24 * time.Hour

// SchedulerOptions are the time gates for one pass, all minutes since
// local midnight except the cool-down.
type SchedulerOptions struct {
	ReminderStartMin int
	AutoMarkMin      int
	SummaryMin       int
	RecheckCooldown  time.Duration
	ReferenceTZ      *time.Location
}

// Scheduler runs the recurring reminder/auto-mark pass. Reminder
// escalation state is process-lifetime only and resets at the start of
// each reference-timezone day or when the chased check-in lands.
type Scheduler struct {
	store    repository.Store
	notifier service.Notifier
	streaks  *StreakLedger
	clock    clock.Clock
	opts     SchedulerOptions

	mu             sync.Mutex
	reminderCounts map[int64]int
	lastReminderAt map[int64]time.Time
	lastAutoMarkAt map[int64]time.Time
	lastResetDay   string
	lastSummaryDay string
}

// NewScheduler creates the reminder/auto-mark scheduler.
func NewScheduler(
	store repository.Store,
	notifier service.Notifier,
	streaks *StreakLedger,
	clk clock.Clock,
	opts SchedulerOptions,
) *Scheduler {
	return &Scheduler{
		store:          store,
		notifier:       notifier,
		streaks:        streaks,
		clock:          clk,
		opts:           opts,
		reminderCounts: make(map[int64]int),
		lastReminderAt: make(map[int64]time.Time),
		lastAutoMarkAt: make(map[int64]time.Time),
	}
}

// ClearReminder drops the user's escalation state; called when the
// check-in the escalation was chasing has been satisfied.
func (s *Scheduler) ClearReminder(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.reminderCounts, userID)
	delete(s.lastReminderAt, userID)
}

// RunPass executes one tick: daily reset, channel summary, then the
// per-user reminder/auto-mark decisions. Errors in one user's handling
// never abort the pass for other users.
func (s *Scheduler) RunPass(ctx context.Context) {
	now := s.clock.Now()
	nowRef := now.In(s.opts.ReferenceTZ)

	s.dailyResetIfNeeded(nowRef)

	if err := s.store.Refresh(ctx); err != nil {
		log.Printf("Scheduler pass: failed to refresh store: %v", err)
		return
	}

	s.maybeSendSummary(ctx, nowRef)

	for _, user := range s.store.AllUsers() {
		if err := s.processUser(ctx, user, now); err != nil {
			log.Printf("Scheduler pass: error processing user %d (@%s): %v", user.ID, user.Username, err)
		}
	}
}

// dailyResetIfNeeded clears all escalation state once per reference-
// timezone calendar day; a new day restarts the sequence from zero.
func (s *Scheduler) dailyResetIfNeeded(nowRef time.Time) {
	today := entity.FormatDate(nowRef)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastResetDay == today {
		return
	}
	if s.lastResetDay != "" {
		s.reminderCounts = make(map[int64]int)
		s.lastReminderAt = make(map[int64]time.Time)
		log.Printf("New day started, resetting all reminder counts")
	}
	s.lastResetDay = today
}

// maybeSendSummary broadcasts the streak leaderboard once per calendar
// day after the configured time-of-day.
func (s *Scheduler) maybeSendSummary(ctx context.Context, nowRef time.Time) {
	if minutesOfDay(nowRef) < s.opts.SummaryMin {
		return
	}
	today := entity.FormatDate(nowRef)
	s.mu.Lock()
	alreadySent := s.lastSummaryDay == today
	s.mu.Unlock()
	if alreadySent {
		return
	}

	summary := FormatLeaderboard(s.store.LatestStreaks(), nowRef.Day())
	if err := s.notifier.SendToChannel(ctx, summary); err != nil {
		log.Printf("Failed to send daily summary: %v", err)
		return
	}
	s.mu.Lock()
	s.lastSummaryDay = today
	s.mu.Unlock()
	log.Printf("Daily summary posted to channel")
}

// processUser makes one of four decisions for the user: auto-mark,
// reminder, final warning, or nothing. The auto-mark check strictly
// precedes the reminder checks.
func (s *Scheduler) processUser(ctx context.Context, user *entity.User, now time.Time) error {
	nowLocal := now.In(user.Location(s.opts.ReferenceTZ))
	yesterday := entity.FormatDate(nowLocal.AddDate(0, 0, -1))

	core := coreHabits(s.store.HabitsForMonth(user.ID, entity.YearMonthOf(yesterday)))
	if len(core) == 0 {
		return nil
	}
	if s.store.HasCheckedIn(user.ID, yesterday) {
		return nil
	}

	curMin := minutesOfDay(nowLocal)
	if curMin >= s.opts.AutoMarkMin {
		return s.autoMark(ctx, user, core, yesterday, nowLocal)
	}
	if curMin < s.opts.ReminderStartMin {
		return nil
	}

	s.mu.Lock()
	count := s.reminderCounts[user.ID]
	last, reminded := s.lastReminderAt[user.ID]
	s.mu.Unlock()

	if count >= maxReminders {
		return nil
	}
	if reminded && nowLocal.Sub(last) < s.opts.RecheckCooldown {
		return nil
	}
	if s.store.HasCheckedIn(user.ID, yesterday) {
		return nil
	}

	count++
	minutesLeft := s.opts.AutoMarkMin - curMin
	msg := formatReminder(user.Username, yesterday, count, minutesLeft)
	if err := s.notifier.SendToUser(ctx, user.ID, msg, nil); err != nil {
		return fmt.Errorf("failed to send reminder %d: %w", count, err)
	}

	s.mu.Lock()
	s.reminderCounts[user.ID] = count
	s.lastReminderAt[user.ID] = nowLocal
	s.mu.Unlock()

	if count == maxReminders {
		log.Printf("Final warning sent to @%s, auto-mark in %d min", user.Username, minutesLeft)
	} else {
		log.Printf("Reminder %d sent to @%s for %s", count, user.Username, yesterday)
	}
	return nil
}

// autoMark writes the terminal outcome for the day: one record per core
// habit, DND-excused or missed, as a single automatic batch. Fires at
// most once per 24 hours per user, and re-verifies "already checked in"
// immediately before committing to narrow the race against a concurrent
// manual check-in.
func (s *Scheduler) autoMark(ctx context.Context, user *entity.User, core []*entity.Habit, date string, nowLocal time.Time) error {
	s.mu.Lock()
	if last, ok := s.lastAutoMarkAt[user.ID]; ok && nowLocal.Sub(last) <= autoMarkWindow {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if s.store.HasCheckedIn(user.ID, date) {
		return nil
	}

	s.mu.Lock()
	s.lastAutoMarkAt[user.ID] = nowLocal
	s.mu.Unlock()

	now := s.clock.Now().UTC()
	batch := make([]*entity.CheckinRecord, 0, len(core))
	failed, excused := 0, 0
	for _, h := range core {
		status := entity.StatusMissed
		if s.store.InDndWindow(user.ID, date, h.ID) {
			status = entity.StatusDnd
			excused++
		} else {
			failed++
		}
		batch = append(batch, &entity.CheckinRecord{
			ID:        uuid.New(),
			UserID:    user.ID,
			Username:  user.Username,
			HabitID:   h.ID,
			HabitText: h.Text,
			ForDate:   date,
			YearMonth: entity.YearMonthOf(date),
			Status:    status,
			MarkedBy:  entity.MarkedAuto,
			CreatedAt: now,
		})
	}

	if err := s.store.AppendCheckins(ctx, batch); err != nil {
		return fmt.Errorf("failed to commit auto-mark batch: %w", err)
	}
	if err := s.store.Refresh(ctx); err != nil {
		log.Printf("Failed to refresh store after auto-mark: %v", err)
	}
	if failed > 0 {
		if err := s.streaks.Record(ctx, user.ID, user.Username, date, failed); err != nil {
			log.Printf("Failed to record streak for user %d: %v", user.ID, err)
		}
	}

	if err := s.notifier.SendToUser(ctx, user.ID, formatAutoMarkNotice(failed, excused), nil); err != nil {
		log.Printf("Failed to send auto-mark notice to user %d: %v", user.ID, err)
	}
	s.ClearReminder(user.ID)
	log.Printf("Auto-marked @%s for missed check-in (%d failed, %d DND)", user.Username, failed, excused)
	return nil
}

func minutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

func formatReminder(username, date string, count, minutesLeft int) string {
	dayName := date
	if t, err := entity.ParseDate(date); err == nil {
		dayName = t.Weekday().String() + ", " + date
	}
	base := fmt.Sprintf("Time to check in for yesterday, %s.\n\nUse /checkin to get started!", dayName)
	if count == maxReminders {
		return fmt.Sprintf("LAST REMINDER\n%s\nAll habits will be marked missed in %d minutes. Check in now @%s!",
			base, minutesLeft, username)
	}
	return base
}

func formatAutoMarkNotice(failed, excused int) string {
	switch {
	case excused > 0 && failed > 0:
		return fmt.Sprintf("Missed check-in. %d marked missed, %d on DND. Snake shrank by %d!", failed, excused, failed)
	case excused > 0:
		return fmt.Sprintf("Missed check-in. All %d habits were on DND. No snake impact!", excused)
	default:
		return fmt.Sprintf("Missed check-in. %d marked missed. Snake shrank by %d!", failed, failed)
	}
}
