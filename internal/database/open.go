package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	cgosqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
	// DriverSQLiteCGO selects the cgo SQLite driver.
	DriverSQLiteCGO = "sqlite3"
)

// Config selects the catalog database.
type Config struct {
	Driver string     `yaml:"driver" json:"driver" env:"DRIVER"`
	DSN    string     `yaml:"dsn" json:"dsn" env:"DSN"`
	Pool   PoolConfig `yaml:"pool" json:"pool" env:"POOL"`

	// SlowQueryThreshold logs statements slower than this at warn level.
	SlowQueryThreshold time.Duration `yaml:"slow_query_threshold" json:"slow_query_threshold" env:"SLOW_QUERY_THRESHOLD"`
}

// DefaultConfig returns an embedded SQLite catalog.
func DefaultConfig() Config {
	return Config{
		Driver:             DriverSQLite,
		DSN:                "file:agentmarket.db?_pragma=busy_timeout(5000)",
		Pool:               DefaultPoolConfig(),
		SlowQueryThreshold: 200 * time.Millisecond,
	}
}

// Dialector returns the GORM dialector for driver.
func Dialector(driver, dsn string) (gorm.Dialector, error) {
	switch strings.ToLower(driver) {
	case DriverPostgres, "postgresql", "pgx":
		return postgres.Open(dsn), nil
	case DriverMySQL:
		return mysql.Open(dsn), nil
	case DriverSQLite:
		return sqlite.Open(dsn), nil
	case DriverSQLiteCGO:
		return cgosqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Open connects to the configured database and wraps it in a PoolManager.
func Open(config Config, logger *zap.Logger) (*PoolManager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.DSN == "" {
		return nil, fmt.Errorf("database dsn is empty")
	}
	dialector, err := Dialector(config.Driver, config.DSN)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newGormLogger(logger, config.SlowQueryThreshold),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", config.Driver, err)
	}

	pool := config.Pool
	if isSQLite(config.Driver) {
		// SQLite allows a single writer.
		pool.MaxOpenConns = 1
		pool.MaxIdleConns = 1
	}
	return NewPoolManager(db, pool, logger)
}

func isSQLite(driver string) bool {
	d := strings.ToLower(driver)
	return d == DriverSQLite || d == DriverSQLiteCGO
}

// newGormLogger routes GORM's slow query and error logs through zap.
func newGormLogger(logger *zap.Logger, slow time.Duration) gormlogger.Interface {
	std := zap.NewStdLog(logger.With(zap.String("component", "gorm")))
	return gormlogger.New(std, gormlogger.Config{
		SlowThreshold:             slow,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}
