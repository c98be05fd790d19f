package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/BaSui01/agentmarket/config"
	"github.com/BaSui01/agentmarket/internal/catalog"
)

// =============================================================================
// 🌱 seed 命令
// =============================================================================

// runSeed writes the sample catalog into the configured store, replacing
// records with the same ids. The in-memory backend is rejected since the
// records would vanish with the process.
func runSeed(args []string) {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	seed := fs.Uint64("seed", 0, "Sample generator seed (default: store.seed_value)")
	concurrency := fs.Int("concurrency", catalog.DefaultSeedConcurrency, "Parallel writers")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if cfg.Store.Backend == config.StoreMemory || cfg.Store.Backend == "" {
		fmt.Fprintln(os.Stderr, "seed needs a persistent store backend (sql or mongo)")
		os.Exit(1)
	}

	logger, _ := initLogger(defaultCLILogConfig())
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	value := cfg.Store.SeedValue
	if *seed != 0 {
		value = *seed
	}

	n, err := seedStore(ctx, cfg, value, *concurrency, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Seed failed after %d record(s): %v\n", n, err)
		os.Exit(1)
	}
	fmt.Printf("Seeded %d record(s) into %s store\n", n, cfg.Store.Backend)
}

func seedStore(ctx context.Context, cfg *config.Config, seed uint64, concurrency int, logger *zap.Logger) (int, error) {
	// 直接写后端，不经过缓存
	direct := *cfg
	direct.Store.CacheEnabled = false

	b, err := openStore(ctx, &direct, nil, logger)
	if err != nil {
		return 0, err
	}
	defer b.Close(context.WithoutCancel(ctx))

	return catalog.Seed(ctx, b.store, catalog.SampleRecords(seed), concurrency, logger)
}

// defaultCLILogConfig keeps one-shot commands quiet on stderr.
func defaultCLILogConfig() config.LogConfig {
	cfg := config.DefaultLogConfig()
	cfg.Level = "warn"
	cfg.Format = "console"
	cfg.OutputPaths = []string{"stderr"}
	cfg.EnableStacktrace = false
	return cfg
}
