package migrate

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/yourflorist/storefront/pkg/config"
	"github.com/yourflorist/storefront/pkg/db"
	"github.com/yourflorist/storefront/pkg/logger"
)

const DefaultDir = "pkg/migrate/migrations"

// Run executes a goose command against the catalog cache schema.
func Run(ctx context.Context, sqlDB *sql.DB, dialect, dir, command string, args ...string) error {
	if sqlDB == nil {
		return fmt.Errorf("db is required")
	}
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	if dialect == "" {
		dialect = "postgres"
	}

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	// RunContext prints status output to stdout (goose internal)
	if err := goose.RunContext(ctx, command, sqlDB, dir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// MaybeRunDev applies pending migrations when the auto-migrate flag is set.
// Intended for development; production deploys run migrations explicitly.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if cfg == nil || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	sqlDB, err := client.SQLDB()
	if err != nil {
		return fmt.Errorf("getting sql handle for migrations: %w", err)
	}
	dialect := "postgres"
	if cfg.FeatureFlags.UseSQLite {
		dialect = "sqlite3"
	}
	if logg != nil {
		logg.Info(ctx, "running dev migrations")
	}
	return Run(ctx, sqlDB, dialect, DefaultDir, "up")
}
