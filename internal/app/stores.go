package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	redisstore "github.com/thumbfast/server/internal/adapter/outbound/redis"
	"github.com/thumbfast/server/internal/adapter/outbound/sqlstore"
	"github.com/thumbfast/server/internal/module/history"
	"github.com/thumbfast/server/internal/module/stats"
	"github.com/thumbfast/server/internal/shared/cache"
	"github.com/thumbfast/server/internal/shared/database"
	"github.com/thumbfast/server/internal/shared/middleware"
)

// Store backends.
const (
	BackendDatabase = "database"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// initStores opens the configured backends. A backend that cannot be opened
// is replaced by a store that fails every call, so reads degrade to empty
// and the service still starts.
func (a *App) initStores(ctx context.Context) (history.Repository, stats.Repository) {
	var historyRepo history.Repository
	switch a.config.History.Backend {
	case BackendMemory:
		historyRepo = history.NewMemoryRepository()
	case BackendRedis:
		if err := a.openRedis(ctx); err != nil {
			historyRepo = a.unavailableHistory(err)
			break
		}
		historyRepo = redisstore.NewHistoryRepository(a.redis, a.config.Redis.KeyPrefix)
	default:
		db, err := a.openDatabase(ctx)
		if err != nil {
			historyRepo = a.unavailableHistory(err)
			break
		}
		repo, err := sqlstore.NewHistoryRepository(db)
		if err != nil {
			historyRepo = a.unavailableHistory(err)
			break
		}
		historyRepo = repo
	}

	var statsRepo stats.Repository
	switch a.config.Stats.Backend {
	case BackendMemory:
		statsRepo = stats.NewMemoryRepository()
	case BackendRedis:
		if err := a.openRedis(ctx); err != nil {
			statsRepo = a.unavailableStats(err)
			break
		}
		statsRepo = redisstore.NewStatsRepository(a.redis, a.config.Redis.KeyPrefix)
	default:
		db, err := a.openDatabase(ctx)
		if err != nil {
			statsRepo = a.unavailableStats(err)
			break
		}
		repo, err := sqlstore.NewStatsRepository(db)
		if err != nil {
			statsRepo = a.unavailableStats(err)
			break
		}
		statsRepo = repo
	}

	return historyRepo, statsRepo
}

// openDatabase opens the database once and shares it between stores.
func (a *App) openDatabase(ctx context.Context) (*gorm.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	db, err := database.New(ctx, &a.config.Database, a.zapLogger)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	a.db = db
	return db, nil
}

// openRedis connects once and shares the client between stores.
func (a *App) openRedis(ctx context.Context) error {
	if a.redis != nil {
		return nil
	}
	client, err := cache.NewRedisClient(ctx, &a.config.Redis)
	if err != nil {
		return fmt.Errorf("init redis: %w", err)
	}
	a.redis = client
	return nil
}

// initRateLimiter picks the generation rate limiter. A redis limiter that
// cannot connect falls back to the in-process one.
func (a *App) initRateLimiter(ctx context.Context) middleware.RateLimiter {
	if a.config.RateLimit.Limit <= 0 {
		return nil
	}
	if a.config.RateLimit.Backend == BackendRedis {
		if err := a.openRedis(ctx); err != nil {
			a.zapLogger.Warn("redis rate limiter unavailable, using memory", zap.Error(err))
			return middleware.NewMemoryRateLimiter()
		}
		return redisstore.NewRateLimiter(a.redis, a.config.Redis.KeyPrefix)
	}
	return middleware.NewMemoryRateLimiter()
}

func (a *App) unavailableHistory(err error) history.Repository {
	a.zapLogger.Error("history store unavailable", zap.Error(err))
	return history.Unavailable(err)
}

func (a *App) unavailableStats(err error) stats.Repository {
	a.zapLogger.Error("stats store unavailable", zap.Error(err))
	return stats.Unavailable(err)
}
