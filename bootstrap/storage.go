package bootstrap

import (
	"context"
	"fmt"

	"orgdir/config"
	"orgdir/storage"

	"go.uber.org/zap"
)

// InitStorage opens the configured database and verifies connectivity
func InitStorage(cfg *config.Config, sugar *zap.SugaredLogger) (*storage.DB, error) {
	driver := storage.Driver(cfg.Database.Driver)
	dsn := cfg.DatabaseDSN()

	db, err := storage.Open(driver, dsn, sugar)
	if err != nil {
		target := cfg.GetSQLitePath()
		if driver == storage.DriverPostgres {
			target = fmt.Sprintf("%s:%d", cfg.Database.Host, cfg.Database.Port)
		}
		sugar.Error(ClassifyDatabaseError(err, cfg.Database.Driver, target))
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sugar.Infow("Database connected", "driver", cfg.Database.Driver)
	return db, nil
}

// RunMigrations applies all pending schema migrations
func RunMigrations(db *storage.DB, sugar *zap.SugaredLogger) error {
	runner, err := storage.NewMigrationRunner(db, sugar)
	if err != nil {
		return fmt.Errorf("failed to create migration runner: %w", err)
	}

	if issues, err := runner.VerifyIntegrity(); err != nil {
		return fmt.Errorf("failed to verify migration integrity: %w", err)
	} else if len(issues) > 0 {
		for _, issue := range issues {
			sugar.Warnw("Migration integrity issue", "issue", issue)
		}
	}

	return runner.RunMigrations()
}

// SeedDatabase populates the database with the configured dataset. The
// built-in dataset is used unless seed.file points at a YAML override.
func SeedDatabase(db *storage.DB, cfg *config.Config, sugar *zap.SugaredLogger) (*storage.SeedResult, error) {
	dataset := storage.DefaultSeedDataset()
	if cfg.Seed.File != "" {
		loaded, err := storage.LoadSeedDataset(cfg.Seed.File)
		if err != nil {
			return nil, fmt.Errorf("failed to load seed dataset from %s: %w", cfg.Seed.File, err)
		}
		sugar.Infow("Using seed dataset from file", "path", cfg.Seed.File)
		dataset = loaded
	}

	seeder := storage.NewSeeder(db, sugar)
	return seeder.Seed(context.Background(), dataset)
}
