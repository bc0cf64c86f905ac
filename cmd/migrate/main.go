package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"podscribe/internal/config"
	"podscribe/internal/db"
	"podscribe/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.NewLogger(cfg.LogLevel, cfg.LogFormat))

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := db.RunMigration(ctx, cfg.DatabaseURL); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}
	slog.Info("migration complete")
}
