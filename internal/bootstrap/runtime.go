// Package bootstrap wires configuration, database and Redis for the cmd/ tools.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"threads/internal/cache"
	"threads/internal/config"
	"threads/internal/database"
	"threads/internal/observability"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// ApplySchema runs AutoMigrate or the SQL migrations after connecting.
	ApplySchema bool
	// WithRedis connects to Redis. A failed connection is logged and yields a nil client.
	WithRedis bool
}

// InitRuntime connects to the database and, optionally, Redis.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: opts.ApplySchema})
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	if !opts.WithRedis {
		return db, nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rdb, err := cache.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		observability.GlobalLogger.Warn("Redis unavailable, continuing without it", slog.String("error", err.Error()))
		return db, nil, nil
	}
	return db, rdb, nil
}

// InitTracing configures the global tracer from cfg.
func InitTracing(cfg *config.Config) (func(context.Context) error, error) {
	return observability.InitTracing(observability.TracingConfig{
		ServiceName:    "threads-api",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSampler,
	})
}

// Close releases the database pool and the Redis client.
func Close(db *gorm.DB, rdb *redis.Client) {
	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if rdb != nil {
		_ = rdb.Close()
	}
}
