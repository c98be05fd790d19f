package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BaSui01/agentmarket/agent/discovery"
	"github.com/BaSui01/agentmarket/agent/discovery/cachestore"
	"github.com/BaSui01/agentmarket/agent/discovery/mongostore"
	"github.com/BaSui01/agentmarket/agent/discovery/sqlstore"
	"github.com/BaSui01/agentmarket/api/handlers"
	"github.com/BaSui01/agentmarket/config"
	"github.com/BaSui01/agentmarket/internal/cache"
	"github.com/BaSui01/agentmarket/internal/catalog"
	"github.com/BaSui01/agentmarket/internal/database"
	"github.com/BaSui01/agentmarket/internal/metrics"
	"github.com/BaSui01/agentmarket/internal/migration"
)

// =============================================================================
// 🗄️ 目录存储装配
// =============================================================================

// txRetries bounds retries of transient SQL write failures.
const txRetries = 3

// storeBundle is an opened record store with its readiness checks and the
// resources to release on shutdown.
type storeBundle struct {
	store   discovery.RecordStore
	checks  []handlers.HealthCheck
	closers []func(context.Context) error
	// seedable reports whether the backend starts empty and may be seeded.
	seedable func(context.Context) (bool, error)
	// reportStats publishes connection pool gauges; nil for poolless backends.
	reportStats func()
}

func (b *storeBundle) Close(ctx context.Context) error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i](ctx))
	}
	return errors.Join(errs...)
}

// openStore builds the configured backend, optionally behind the Redis cache.
// collector may be nil.
func openStore(ctx context.Context, cfg *config.Config, collector *metrics.Collector, logger *zap.Logger) (*storeBundle, error) {
	b := &storeBundle{}

	switch cfg.Store.Backend {
	case config.StoreMemory, "":
		var opts []discovery.MemoryStoreOption
		if !cfg.Store.CombinedOrdering {
			opts = append(opts, discovery.WithoutCombinedOrdering())
		}
		mem := discovery.NewInMemoryStore(nil, opts...)
		b.store = mem
		b.seedable = func(context.Context) (bool, error) { return mem.Len() == 0, nil }

	case config.StoreSQL:
		pool, err := database.Open(cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func(context.Context) error { return pool.Close() })

		if cfg.Store.AutoMigrate {
			if err := migrateSchema(ctx, pool, cfg.Database.Driver, logger); err != nil {
				_ = b.Close(ctx)
				return nil, err
			}
		}
		sql := sqlstore.New(pool.DB(), logger, sqlstore.WithTxRunner(
			func(ctx context.Context, fn func(tx *gorm.DB) error) error {
				return pool.WithTransactionRetry(ctx, txRetries, fn)
			}))
		b.store = sql
		b.checks = append(b.checks, handlers.NewPingCheck("database", pool.Ping))
		b.seedable = func(ctx context.Context) (bool, error) {
			n, err := sql.Count(ctx)
			return n == 0, err
		}
		if collector != nil {
			b.reportStats = func() {
				stats := pool.GetStats()
				collector.RecordDBConnections(cfg.Database.Driver, stats.OpenConnections, stats.Idle)
			}
			b.reportStats()
		}

	case config.StoreMongo:
		mongo, err := mongostore.Open(ctx, cfg.Mongo, logger)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, mongo.Close)
		if err := mongo.EnsureIndexes(ctx); err != nil {
			_ = b.Close(ctx)
			return nil, err
		}
		b.store = mongo
		b.checks = append(b.checks, handlers.NewPingCheck("mongo", mongo.Ping))
		b.seedable = func(ctx context.Context) (bool, error) {
			recs, err := mongo.Query(ctx, &discovery.StoreQuery{Limit: 1})
			return len(recs) == 0, err
		}

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	if cfg.Store.CacheEnabled {
		redis, err := cache.NewManager(cfg.Redis, logger)
		if err != nil {
			_ = b.Close(ctx)
			return nil, fmt.Errorf("open redis cache: %w", err)
		}
		b.closers = append(b.closers, func(context.Context) error { return redis.Close() })
		b.checks = append(b.checks, handlers.NewPingCheck("redis", redis.Ping))

		var opts []cachestore.Option
		if collector != nil {
			opts = append(opts, cachestore.WithHitRecorder(collector))
		}
		b.store = cachestore.New(b.store, redis, cfg.Store.Cache, logger, opts...)
	}

	logger.Info("record store ready",
		zap.String("backend", cfg.Store.Backend),
		zap.Bool("cache", cfg.Store.CacheEnabled))
	return b, nil
}

func migrateSchema(ctx context.Context, pool *database.PoolManager, driver string, logger *zap.Logger) error {
	m, err := migration.NewMigratorForPool(pool, driver, logger)
	if err != nil {
		return fmt.Errorf("prepare migrations: %w", err)
	}
	defer m.Close()
	if err := m.Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// seedIfEmpty loads the sample catalog when the store holds no records.
func seedIfEmpty(ctx context.Context, b *storeBundle, seed uint64, logger *zap.Logger) (int, error) {
	empty, err := b.seedable(ctx)
	if err != nil {
		return 0, fmt.Errorf("check catalog size: %w", err)
	}
	if !empty {
		logger.Info("catalog already populated, skipping sample seed")
		return 0, nil
	}
	return catalog.Seed(ctx, b.store, catalog.SampleRecords(seed), catalog.DefaultSeedConcurrency, logger)
}
