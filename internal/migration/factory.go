package migration

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GormSource exposes the GORM handle of an open connection pool.
type GormSource interface {
	DB() *gorm.DB
}

// NewMigratorForPool migrates the database behind pool using the dialect
// named by driver. The pool keeps ownership of the connection.
func NewMigratorForPool(pool GormSource, driver string, logger *zap.Logger) (*DefaultMigrator, error) {
	if pool == nil || pool.DB() == nil {
		return nil, fmt.Errorf("pool is required")
	}
	dbType, err := ParseDatabaseType(driver)
	if err != nil {
		return nil, err
	}
	sqlDB, err := pool.DB().DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return NewMigrator(&Config{DatabaseType: dbType, DB: sqlDB}, logger)
}

// NewMigratorFromURL opens its own connection to dbURL.
func NewMigratorFromURL(dbType, dbURL string, logger *zap.Logger) (*DefaultMigrator, error) {
	dt, err := ParseDatabaseType(dbType)
	if err != nil {
		return nil, err
	}
	return NewMigrator(&Config{DatabaseType: dt, DatabaseURL: dbURL}, logger)
}
