package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/BaSui01/agentmarket/internal/database"
	"github.com/BaSui01/agentmarket/internal/migration"
)

// =============================================================================
// Database Migration Commands
// =============================================================================

// runMigrate handles `agentmarket migrate <subcommand> [args] [flags]`.
func runMigrate(args []string) {
	if len(args) < 1 {
		printMigrateUsage()
		os.Exit(1)
	}

	subcommand := args[0]
	if subcommand == "help" || subcommand == "-h" || subcommand == "--help" {
		printMigrateUsage()
		return
	}

	fs := flag.NewFlagSet("migrate "+subcommand, flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	dbType := fs.String("db-type", "", "Database type (postgres, mysql, sqlite)")
	dbURL := fs.String("db-url", "", "Database connection URL")

	// 位置参数（steps/goto/force 的版本号）在 flag 之前
	positional, flagArgs := splitPositional(args[1:])
	fs.Parse(flagArgs)
	positional = append(positional, fs.Args()...)

	logger, _ := initLogger(defaultCLILogConfig())
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m, cleanup, err := createMigrator(*configPath, *dbType, *dbURL, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create migrator: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	if err := migration.NewCLI(m).Run(ctx, subcommand, positional); err != nil {
		fmt.Fprintf(os.Stderr, "Migration %s failed: %v\n", subcommand, err)
		cleanup()
		os.Exit(1)
	}
}

// createMigrator prefers an explicit --db-type/--db-url pair; otherwise it
// opens the configured catalog database.
func createMigrator(configPath, dbType, dbURL string, logger *zap.Logger) (*migration.DefaultMigrator, func(), error) {
	if dbType != "" && dbURL != "" {
		m, err := migration.NewMigratorFromURL(dbType, dbURL, logger)
		if err != nil {
			return nil, nil, err
		}
		return m, func() { _ = m.Close() }, nil
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	if dbType != "" {
		cfg.Database.Driver = dbType
	}
	if dbURL != "" {
		cfg.Database.DSN = dbURL
	}

	pool, err := database.Open(cfg.Database, logger)
	if err != nil {
		return nil, nil, err
	}
	m, err := migration.NewMigratorForPool(pool, cfg.Database.Driver, logger)
	if err != nil {
		_ = pool.Close()
		return nil, nil, err
	}

	closed := false
	return m, func() {
		if closed {
			return
		}
		closed = true
		_ = m.Close()
		_ = pool.Close()
	}, nil
}

// splitPositional separates leading non-flag arguments from the flags that
// follow them, since flag.Parse stops at the first positional argument.
func splitPositional(args []string) (positional, flags []string) {
	for i, arg := range args {
		if _, err := strconv.Atoi(arg); err != nil && strings.HasPrefix(arg, "-") {
			return positional, args[i:]
		}
		positional = append(positional, arg)
	}
	return positional, nil
}

// printMigrateUsage prints the usage information for migrate command
func printMigrateUsage() {
	fmt.Printf(`Database Migration Commands

Usage:
  agentmarket migrate <subcommand> [args] [options]

Subcommands:
  up          Apply all pending migrations
  down        Rollback the last migration
  down-all    Rollback all migrations
  steps <n>   Apply (n>0) or roll back (n<0) n migrations
  goto <v>    Migrate to a specific version
  force <v>   Force set migration version (use with caution)
  version     Show current migration version
  status      Show migration status
  help        Show this help message

Known subcommands: %s

Options:
  --config <path>     Path to configuration file (YAML)
  --db-type <type>    Database type: postgres, mysql, sqlite (default: from config)
  --db-url <url>      Database connection URL (default: from config)

Examples:
  agentmarket migrate up
  agentmarket migrate up --config /etc/agentmarket/config.yaml
  agentmarket migrate steps -1
  agentmarket migrate goto 1 --db-type sqlite --db-url sqlite3://agentmarket.db
  agentmarket migrate status
`, strings.Join(migration.Commands, ", "))
}
