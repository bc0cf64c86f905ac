// Package app builds the dependency graph shared by the server, worker and scheduler.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/samber/do/v2"
	"podscribe/internal/auth"
	"podscribe/internal/config"
	"podscribe/internal/db"
	"podscribe/internal/handlers"
	"podscribe/internal/storage"
	"podscribe/internal/transcription"
	"podscribe/internal/worker"
	"podscribe/pkg/tasks"
)

const databaseInitTimeout = 15 * time.Second

// RegisterDI provides every component lazily; cmd mains invoke only what they run.
func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*db.Store, error) {
		cfg := do.MustInvoke[*config.Config](i)
		ctx, cancel := context.WithTimeout(context.Background(), databaseInitTimeout)
		defer cancel()
		return db.Open(ctx, cfg.DatabaseURL)
	})

	do.Provide(injector, func(i do.Injector) (asynq.RedisConnOpt, error) {
		cfg := do.MustInvoke[*config.Config](i)
		opt, err := asynq.ParseRedisURI(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		return opt, nil
	})

	do.Provide(injector, func(i do.Injector) (tasks.TaskEnqueuer, error) {
		return asynq.NewClient(do.MustInvoke[asynq.RedisConnOpt](i)), nil
	})

	do.Provide(injector, func(i do.Injector) (storage.ObjectStore, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if !cfg.HasStorage() {
			slog.Warn("object storage not configured, uploads are disabled")
			return storage.Unconfigured{}, nil
		}
		return storage.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseKey, cfg.StorageBucket)
	})

	do.Provide(injector, func(i do.Injector) (*auth.TokenIssuer, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL), nil
	})

	do.Provide(injector, func(i do.Injector) (worker.Provider, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if cfg.AssemblyAIAPIKey == "" {
			slog.Warn("ASSEMBLYAI_API_KEY is not set, transcription submissions will fail")
		}
		return transcription.NewClient(cfg.AssemblyAIBaseURL, cfg.AssemblyAIAPIKey), nil
	})

	do.Provide(injector, func(i do.Injector) (*handlers.Handlers, error) {
		return handlers.New(
			do.MustInvoke[*db.Store](i),
			do.MustInvoke[tasks.TaskEnqueuer](i),
			do.MustInvoke[storage.ObjectStore](i),
			do.MustInvoke[*auth.TokenIssuer](i),
			do.MustInvoke[*config.Config](i),
		), nil
	})

	do.Provide(injector, func(i do.Injector) (*worker.TaskHandler, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return worker.NewTaskHandler(
			do.MustInvoke[*db.Store](i),
			do.MustInvoke[worker.Provider](i),
			do.MustInvoke[tasks.TaskEnqueuer](i),
			worker.PollPolicy{
				Interval:    cfg.PollInterval,
				MaxAttempts: cfg.MaxPollAttempts,
				StaleAfter:  cfg.StaleAfter(),
			},
		), nil
	})
}

// New creates an injector seeded with cfg and every provider registered.
func New(cfg *config.Config) do.Injector {
	injector := do.New()
	do.ProvideValue(injector, cfg)
	RegisterDI(injector)
	return injector
}
