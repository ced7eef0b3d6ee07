package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMigrationRunnerAppliesAllPending(t *testing.T) {
	logger := zap.NewNop().Sugar()
	db, err := Open(DriverSQLite, ":memory:", logger)
	require.NoError(t, err)
	defer db.Close()

	runner, err := NewMigrationRunner(db, logger)
	require.NoError(t, err)

	pending, err := runner.GetPendingMigrations()
	require.NoError(t, err)
	assert.Len(t, pending, 3)

	require.NoError(t, runner.RunMigrations())

	applied, err := runner.GetAppliedMigrations()
	require.NoError(t, err)
	assert.Len(t, applied, 3)
	assert.Equal(t, "1.0.0", applied[0].Version)
	assert.Equal(t, "1.2.0", applied[2].Version)

	// Schema is actually in place
	var count int
	err = db.ReadDB.QueryRow(`SELECT COUNT(*) FROM organizations`).Scan(&count)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMigrationRunnerIsIdempotent(t *testing.T) {
	logger := zap.NewNop().Sugar()
	db, err := Open(DriverSQLite, ":memory:", logger)
	require.NoError(t, err)
	defer db.Close()

	runner, err := NewMigrationRunner(db, logger)
	require.NoError(t, err)
	require.NoError(t, runner.RunMigrations())
	require.NoError(t, runner.RunMigrations())

	pending, err := runner.GetPendingMigrations()
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestMigrationRunnerRollback(t *testing.T) {
	logger := zap.NewNop().Sugar()
	db, err := Open(DriverSQLite, ":memory:", logger)
	require.NoError(t, err)
	defer db.Close()

	runner, err := NewMigrationRunner(db, logger)
	require.NoError(t, err)
	require.NoError(t, runner.RunMigrations())

	err = runner.RollbackMigration("1.2.0", "testing rollback")
	require.NoError(t, err)

	pending, err := runner.GetPendingMigrations()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "1.2.0", pending[0].Version)

	// Initial schema has no Down function
	err = runner.RollbackMigration("1.0.0", "should fail")
	assert.Error(t, err)

	// Unknown versions are rejected
	err = runner.RollbackMigration("9.9.9", "missing")
	assert.Error(t, err)
}

func TestMigrationRunnerStatus(t *testing.T) {
	logger := zap.NewNop().Sugar()
	db, err := Open(DriverSQLite, ":memory:", logger)
	require.NoError(t, err)
	defer db.Close()

	runner, err := NewMigrationRunner(db, logger)
	require.NoError(t, err)
	require.NoError(t, runner.RunMigrations())

	status, err := runner.GetMigrationStatus()
	require.NoError(t, err)
	assert.Equal(t, 3, status["total_registered"])
	assert.Equal(t, 3, status["applied_count"])
	assert.Equal(t, 0, status["pending_count"])
	assert.Equal(t, "1.2.0", status["latest_applied"])
	assert.Empty(t, status["integrity_issues"])
}

func TestCompareVersions(t *testing.T) {
	assert.Equal(t, -1, compareVersions("1.0.0", "1.1.0"))
	assert.Equal(t, 1, compareVersions("1.10.0", "1.9.0"))
	assert.Equal(t, 0, compareVersions("1.2.0", "1.2.0"))
	assert.Equal(t, -1, compareVersions("1.2", "1.2.1"))
}
