package cron

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kbehari1995/habit-snake-bot/internal/service"
)

// ReminderLoop drives the scheduler on a fixed tick. Each tick runs one
// full reminder/auto-mark/summary pass.
type ReminderLoop struct {
	scheduler *service.Scheduler
	cron      *cron.Cron
	interval  time.Duration
}

// NewReminderLoop creates a new reminder loop
func NewReminderLoop(scheduler *service.Scheduler, tickInterval time.Duration) *ReminderLoop {
	return &ReminderLoop{
		scheduler: scheduler,
		cron:      cron.New(),
		interval:  tickInterval,
	}
}

// Start starts the reminder loop
func (l *ReminderLoop) Start() error {
	cronExpr := fmt.Sprintf("@every %s", l.interval.String())

	log.Printf("Starting reminder loop with interval: %s", l.interval)

	_, err := l.cron.AddFunc(cronExpr, func() {
		l.runPass()
	})

	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	l.cron.Start()
	log.Println("Reminder loop started successfully")

	return nil
}

// Stop stops the reminder loop and waits for a running pass to finish.
func (l *ReminderLoop) Stop() {
	log.Println("Stopping reminder loop...")
	ctx := l.cron.Stop()
	<-ctx.Done()
	log.Println("Reminder loop stopped")
}

func (l *ReminderLoop) runPass() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	l.scheduler.RunPass(ctx)
}
