package main

import (
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/samber/do/v2"
	"podscribe/internal/app"
	"podscribe/internal/config"
	"podscribe/internal/logging"
	"podscribe/pkg/tasks"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	injector := app.New(cfg)
	scheduler := asynq.NewScheduler(
		do.MustInvoke[asynq.RedisConnOpt](injector),
		&asynq.SchedulerOpts{Logger: &logging.AsynqLogger{Logger: logger}},
	)

	task, err := tasks.NewReapStaleTranscriptionsTask()
	if err != nil {
		slog.Error("could not create task", "error", err)
		os.Exit(1)
	}

	if _, err := scheduler.Register(cfg.StaleReapSchedule, task); err != nil {
		slog.Error("could not register task", "schedule", cfg.StaleReapSchedule, "error", err)
		os.Exit(1)
	}

	slog.Info("scheduler starting", "commit", CommitSHA, "schedule", cfg.StaleReapSchedule, "stale_after", cfg.StaleAfter())
	if err := scheduler.Run(); err != nil {
		slog.Error("could not run scheduler", "error", err)
		os.Exit(1)
	}
}
