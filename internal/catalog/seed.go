package catalog

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/agentmarket/agent/discovery"
)

// DefaultSeedConcurrency bounds concurrent writes during Seed.
const DefaultSeedConcurrency = 4

// Seed writes records into store with at most concurrency writes in flight.
// It returns the number of records written before the first failure.
func Seed(ctx context.Context, store discovery.RecordStore, records []*discovery.AgentRecord, concurrency int, logger *zap.Logger) (int, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if concurrency <= 0 {
		concurrency = DefaultSeedConcurrency
	}

	var written atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, rec := range records {
		g.Go(func() error {
			if err := store.Put(gctx, rec); err != nil {
				return fmt.Errorf("seed %s: %w", rec.ID, err)
			}
			written.Add(1)
			logger.Debug("agent record seeded",
				zap.String("agent_id", rec.ID),
				zap.Float64("price", rec.Price),
				zap.Int("karma", rec.Reputation))
			return nil
		})
	}
	err := g.Wait()
	n := int(written.Load())
	if err != nil {
		return n, err
	}
	logger.Info("catalog seeded", zap.Int("records", n))
	return n, nil
}
