package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestDB opens an in-memory SQLite database with the full schema applied
func newTestDB(t *testing.T) *DB {
	t.Helper()

	logger := zap.NewNop().Sugar()
	db, err := Open(DriverSQLite, ":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	runner, err := NewMigrationRunner(db, logger)
	require.NoError(t, err)
	require.NoError(t, runner.RunMigrations())

	return db
}

// newSeededDB opens a test database populated with the default dataset
func newSeededDB(t *testing.T) *DB {
	t.Helper()

	db := newTestDB(t)
	seeder := NewSeeder(db, zap.NewNop().Sugar())
	_, err := seeder.Seed(context.Background(), DefaultSeedDataset())
	require.NoError(t, err)

	return db
}
