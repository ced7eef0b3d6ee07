package storage

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"orgdir/metrics"

	"go.uber.org/zap"
)

// Migration represents a database migration with up and down operations
type Migration struct {
	Version     string              // Semantic version (e.g., "1.0.0")
	Name        string              // Descriptive name (e.g., "add_directory_indexes")
	Description string              // Human-readable description
	Up          func(*sql.Tx) error // Apply migration
	Down        func(*sql.Tx) error // Rollback migration (optional)
	Checksum    string              // SHA256 of migration content for drift detection
	AppliedAt   time.Time           // When migration was applied (populated from DB)
}

// MigrationRecord represents a row in the schema_migrations table
type MigrationRecord struct {
	ID        int64
	Version   string
	Name      string
	Checksum  string
	AppliedAt time.Time
	Duration  int64 // milliseconds
}

// MigrationRunner manages database migrations
type MigrationRunner struct {
	db         *DB
	logger     *zap.SugaredLogger
	migrations []Migration
}

// NewMigrationRunner creates a new migration runner and registers the
// directory schema migrations for the database's dialect.
func NewMigrationRunner(db *DB, logger *zap.SugaredLogger) (*MigrationRunner, error) {
	runner := &MigrationRunner{
		db:         db,
		logger:     logger,
		migrations: make([]Migration, 0),
	}

	// Ensure schema_migrations table exists
	if err := runner.ensureMigrationsTable(); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	switch db.Driver {
	case DriverPostgres:
		registerPostgresMigrations(runner)
	default:
		registerSQLiteMigrations(runner)
	}

	return runner, nil
}

// ensureMigrationsTable creates the schema_migrations table if it doesn't exist
func (r *MigrationRunner) ensureMigrationsTable() error {
	var schema string
	if r.db.Driver == DriverPostgres {
		schema = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id BIGSERIAL PRIMARY KEY,
			version TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			checksum TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			duration_ms BIGINT NOT NULL DEFAULT 0,
			rolled_back_at TIMESTAMPTZ,
			rollback_reason TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_schema_migrations_version ON schema_migrations(version);
		CREATE INDEX IF NOT EXISTS idx_schema_migrations_applied_at ON schema_migrations(applied_at);
		`
	} else {
		schema = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			version TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			checksum TEXT NOT NULL,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			rolled_back_at DATETIME,
			rollback_reason TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_schema_migrations_version ON schema_migrations(version);
		CREATE INDEX IF NOT EXISTS idx_schema_migrations_applied_at ON schema_migrations(applied_at);
		`
	}
	_, err := r.db.WriteDB.Exec(schema)
	return err
}

// Register adds a migration to the runner
func (r *MigrationRunner) Register(m Migration) {
	// Calculate checksum if not provided
	if m.Checksum == "" {
		m.Checksum = r.calculateChecksum(m)
	}
	r.migrations = append(r.migrations, m)
}

// calculateChecksum generates a SHA256 hash for migration drift detection
func (r *MigrationRunner) calculateChecksum(m Migration) string {
	// Use version + name as checksum input (Up/Down functions can't be hashed)
	content := fmt.Sprintf("%s:%s", m.Version, m.Name)
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:8]) // Use first 8 bytes for brevity
}

// GetAppliedMigrations returns all migrations that have been applied
func (r *MigrationRunner) GetAppliedMigrations() ([]MigrationRecord, error) {
	rows, err := r.db.WriteDB.Query(`
		SELECT id, version, name, checksum, applied_at, duration_ms
		FROM schema_migrations
		WHERE rolled_back_at IS NULL
		ORDER BY version ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	var records []MigrationRecord
	for rows.Next() {
		var rec MigrationRecord
		if err := rows.Scan(&rec.ID, &rec.Version, &rec.Name, &rec.Checksum, &rec.AppliedAt, &rec.Duration); err != nil {
			return nil, fmt.Errorf("failed to scan migration record: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// GetPendingMigrations returns migrations that haven't been applied yet
func (r *MigrationRunner) GetPendingMigrations() ([]Migration, error) {
	applied, err := r.GetAppliedMigrations()
	if err != nil {
		return nil, err
	}

	// Build set of applied versions
	appliedSet := make(map[string]bool)
	for _, rec := range applied {
		appliedSet[rec.Version] = true
	}

	// Filter registered migrations
	var pending []Migration
	for _, m := range r.migrations {
		if !appliedSet[m.Version] {
			pending = append(pending, m)
		}
	}

	// Sort by version
	sort.Slice(pending, func(i, j int) bool {
		return compareVersions(pending[i].Version, pending[j].Version) < 0
	})

	return pending, nil
}

// RunMigrations applies all pending migrations
func (r *MigrationRunner) RunMigrations() error {
	pending, err := r.GetPendingMigrations()
	if err != nil {
		return err
	}

	if len(pending) == 0 {
		r.logger.Debug("No pending migrations")
		return nil
	}

	r.logger.Infof("Running %d pending migrations", len(pending))

	for _, m := range pending {
		if err := r.runMigration(m); err != nil {
			return fmt.Errorf("migration %s (%s) failed: %w", m.Version, m.Name, err)
		}
	}

	r.logger.Info("All migrations completed successfully")
	return nil
}

// runMigration applies a single migration within a transaction.
// Uses a named return value so panics inside Up() surface as errors.
func (r *MigrationRunner) runMigration(m Migration) (err error) {
	r.logger.Infof("Running migration %s: %s", m.Version, m.Name)
	start := time.Now()

	var tx *sql.Tx
	tx, err = r.db.WriteDB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			if panicAsErr, ok := p.(error); ok {
				err = fmt.Errorf("migration panicked: %w", panicAsErr)
			} else {
				err = fmt.Errorf("migration panicked: %v", p)
			}
		}
	}()

	// Run the migration
	if err := m.Up(tx); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("migration Up() failed: %w", err)
	}

	// Record the migration
	duration := time.Since(start).Milliseconds()
	_, err = tx.Exec(r.db.Rebind(`
		INSERT INTO schema_migrations (version, name, checksum, applied_at, duration_ms)
		VALUES (?, ?, ?, ?, ?)
	`), m.Version, m.Name, m.Checksum, time.Now().UTC(), duration)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to record migration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}

	metrics.MigrationsApplied.Inc()
	r.logger.Infof("Migration %s completed in %dms", m.Version, duration)
	return nil
}

// RollbackMigration rolls back a specific migration by version
func (r *MigrationRunner) RollbackMigration(version string, reason string) (err error) {
	// Find the migration
	var migration *Migration
	for i := range r.migrations {
		if r.migrations[i].Version == version {
			migration = &r.migrations[i]
			break
		}
	}

	if migration == nil {
		return fmt.Errorf("migration %s not found in registry", version)
	}

	if migration.Down == nil {
		return fmt.Errorf("migration %s does not support rollback (no Down function)", version)
	}

	// Verify migration was applied
	var appliedAt sql.NullTime
	err = r.db.WriteDB.QueryRow(r.db.Rebind(`
		SELECT applied_at FROM schema_migrations
		WHERE version = ? AND rolled_back_at IS NULL
	`), version).Scan(&appliedAt)
	if err == sql.ErrNoRows {
		return fmt.Errorf("migration %s has not been applied or was already rolled back", version)
	}
	if err != nil {
		return fmt.Errorf("failed to check migration status: %w", err)
	}

	r.logger.Infof("Rolling back migration %s: %s (reason: %s)", version, migration.Name, reason)

	var tx *sql.Tx
	tx, err = r.db.WriteDB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			if panicAsErr, ok := p.(error); ok {
				err = fmt.Errorf("rollback panicked: %w", panicAsErr)
			} else {
				err = fmt.Errorf("rollback panicked: %v", p)
			}
		}
	}()

	// Run the rollback
	if err := migration.Down(tx); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("rollback Down() failed: %w", err)
	}

	// Mark as rolled back (soft delete)
	_, err = tx.Exec(r.db.Rebind(`
		UPDATE schema_migrations
		SET rolled_back_at = ?, rollback_reason = ?
		WHERE version = ?
	`), time.Now().UTC(), reason, version)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to mark migration as rolled back: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rollback: %w", err)
	}

	r.logger.Infof("Migration %s rolled back successfully", version)
	return nil
}

// VerifyIntegrity checks for migration drift (modified applied migrations)
func (r *MigrationRunner) VerifyIntegrity() ([]string, error) {
	applied, err := r.GetAppliedMigrations()
	if err != nil {
		return nil, err
	}

	// Build map of registered migrations
	registered := make(map[string]Migration)
	for _, m := range r.migrations {
		registered[m.Version] = m
	}

	var issues []string

	// Check each applied migration against registered ones
	for _, rec := range applied {
		if m, ok := registered[rec.Version]; ok {
			// Skip checksum validation for reconciled migrations (applied before framework existed)
			if rec.Checksum == "reconciled" {
				continue
			}
			if m.Checksum != rec.Checksum {
				issues = append(issues, fmt.Sprintf(
					"Migration %s checksum mismatch: applied=%s, registered=%s (possible code drift)",
					rec.Version, rec.Checksum, m.Checksum,
				))
			}
		} else {
			issues = append(issues, fmt.Sprintf(
				"Migration %s was applied but is not registered (orphaned migration)",
				rec.Version,
			))
		}
	}

	return issues, nil
}

// GetMigrationStatus returns a summary of migration state
func (r *MigrationRunner) GetMigrationStatus() (map[string]interface{}, error) {
	applied, err := r.GetAppliedMigrations()
	if err != nil {
		return nil, err
	}

	pending, err := r.GetPendingMigrations()
	if err != nil {
		return nil, err
	}

	issues, err := r.VerifyIntegrity()
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"total_registered": len(r.migrations),
		"applied_count":    len(applied),
		"pending_count":    len(pending),
		"integrity_issues": issues,
		"latest_applied":   getLatestVersion(applied),
	}, nil
}

// getLatestVersion returns the highest version from applied migrations
func getLatestVersion(applied []MigrationRecord) string {
	if len(applied) == 0 {
		return ""
	}
	return applied[len(applied)-1].Version
}

// compareVersions compares two semantic versions
// Returns -1 if a < b, 0 if a == b, 1 if a > b
func compareVersions(a, b string) int {
	partsA := strings.Split(a, ".")
	partsB := strings.Split(b, ".")

	maxLen := len(partsA)
	if len(partsB) > maxLen {
		maxLen = len(partsB)
	}

	for i := 0; i < maxLen; i++ {
		var numA, numB int
		if i < len(partsA) {
			fmt.Sscanf(partsA[i], "%d", &numA)
		}
		if i < len(partsB) {
			fmt.Sscanf(partsB[i], "%d", &numB)
		}

		if numA < numB {
			return -1
		}
		if numA > numB {
			return 1
		}
	}
	return 0
}
