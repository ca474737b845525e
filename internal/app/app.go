package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kbehari1995/habit-snake-bot/internal/config"
	"github.com/kbehari1995/habit-snake-bot/internal/infrastructure/cache"
	cronpkg "github.com/kbehari1995/habit-snake-bot/internal/infrastructure/cron"
	infradb "github.com/kbehari1995/habit-snake-bot/internal/infrastructure/db"
	"github.com/kbehari1995/habit-snake-bot/internal/infrastructure/kafka"
	"github.com/kbehari1995/habit-snake-bot/internal/infrastructure/postgres"
	redisinfra "github.com/kbehari1995/habit-snake-bot/internal/infrastructure/redis"
	"github.com/kbehari1995/habit-snake-bot/internal/service"
	"github.com/kbehari1995/habit-snake-bot/internal/transport/chat"
	"github.com/kbehari1995/habit-snake-bot/pkg/clock"
)

// App represents the application
type App struct {
	config       *config.Config
	gateway      *kafka.Gateway
	notifier     *kafka.Notifier
	reminderLoop *cronpkg.ReminderLoop
	dbPool       *pgxpool.Pool
}

// New creates a new application
func New() (*App, error) {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Println("Configuration loaded successfully")

	ctx := context.Background()

	// Initialize PostgreSQL connection pool
	dbPool, err := infradb.NewPostgresPool(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	fmt.Println("Connected to PostgreSQL")

	// Initialize Redis
	redisClient, err := redisinfra.NewClient(ctx, &cfg.Redis)
	if err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	fmt.Println("Connected to Redis")

	// Initialize repositories and the snapshot store
	store := cache.NewStore(
		postgres.NewUserRepository(dbPool),
		postgres.NewHabitRepository(dbPool),
		postgres.NewCheckinRepository(dbPool),
		postgres.NewDndRepository(dbPool),
		postgres.NewStreakRepository(dbPool),
	)
	if err := store.Refresh(ctx); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to warm up store: %w", err)
	}

	sessions := redisinfra.NewSessionStore(redisClient, cfg.Redis.SessionTTL)
	notifier := kafka.NewNotifier(&cfg.Kafka)

	// Initialize services
	clk := clock.System{}
	eligibility := service.NewEligibilityService(store)
	streaks := service.NewStreakLedger(store)

	schedOpts, err := schedulerOptions(&cfg.Scheduler)
	if err != nil {
		dbPool.Close()
		return nil, err
	}
	scheduler := service.NewScheduler(store, notifier, streaks, clk, schedOpts)

	checkinFlow := service.NewCheckinFlow(store, sessions, notifier, eligibility, streaks, scheduler, clk)
	dndFlow := service.NewDndFlow(store, sessions, notifier, clk)
	habitFlow := service.NewHabitSetupFlow(store, sessions, notifier, clk)
	fmt.Println("Services initialized")

	// Initialize reminder loop (if enabled)
	var reminderLoop *cronpkg.ReminderLoop
	if cfg.Scheduler.Enabled {
		reminderLoop = cronpkg.NewReminderLoop(scheduler, cfg.Scheduler.TickInterval)
		fmt.Println("Reminder loop initialized")
	} else {
		fmt.Println("Reminder loop is disabled in configuration")
	}

	// Initialize inbound gateway
	dispatcher := chat.NewDispatcher(checkinFlow, dndFlow, habitFlow, notifier)
	gateway := kafka.NewGateway(&cfg.Kafka, dispatcher)

	return &App{
		config:       cfg,
		gateway:      gateway,
		notifier:     notifier,
		reminderLoop: reminderLoop,
		dbPool:       dbPool,
	}, nil
}

// Run starts the application
func (a *App) Run() error {
	// Setup signal handling for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	// Start reminder loop if enabled
	if a.reminderLoop != nil {
		if err := a.reminderLoop.Start(); err != nil {
			return fmt.Errorf("failed to start reminder loop: %w", err)
		}
	}

	// Start inbound gateway in a goroutine
	gatewayCtx, cancelGateway := context.WithCancel(context.Background())
	go func() {
		if err := a.gateway.Start(gatewayCtx); err != nil {
			fmt.Printf("Gateway error: %v\n", err)
			quit <- syscall.SIGTERM
		}
	}()

	fmt.Printf("%s started\n", a.config.Service.Name)
	fmt.Println("Press Ctrl+C to shutdown...")

	// Wait for interrupt signal
	<-quit
	fmt.Println("\nShutting down...")

	// Graceful shutdown
	cancelGateway()

	if a.reminderLoop != nil {
		a.reminderLoop.Stop()
	}

	if err := a.notifier.Close(); err != nil {
		fmt.Printf("Error closing notifier: %v\n", err)
	}

	// Close database pool
	a.dbPool.Close()

	fmt.Println("Shutdown complete")
	return nil
}

func schedulerOptions(cfg *config.SchedulerConfig) (service.SchedulerOptions, error) {
	reminderStart, err := config.ParseClock(cfg.ReminderStart)
	if err != nil {
		return service.SchedulerOptions{}, fmt.Errorf("invalid reminder_start: %w", err)
	}
	autoMarkAt, err := config.ParseClock(cfg.AutoMarkAt)
	if err != nil {
		return service.SchedulerOptions{}, fmt.Errorf("invalid auto_mark_at: %w", err)
	}
	summaryAt, err := config.ParseClock(cfg.SummaryAt)
	if err != nil {
		return service.SchedulerOptions{}, fmt.Errorf("invalid summary_at: %w", err)
	}
	tz, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return service.SchedulerOptions{}, fmt.Errorf("invalid scheduler timezone %q: %w", cfg.Timezone, err)
	}

	return service.SchedulerOptions{
		ReminderStartMin: reminderStart,
		AutoMarkMin:      autoMarkAt,
		SummaryMin:       summaryAt,
		RecheckCooldown:  cfg.RecheckCooldown,
		ReferenceTZ:      tz,
	}, nil
}
