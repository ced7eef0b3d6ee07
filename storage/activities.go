package storage

import (
	"context"
	"database/sql"
	"fmt"

	"orgdir/core"

	"go.uber.org/zap"
)

// ActivityStorage provides access to the activities table
type ActivityStorage struct {
	db     *DB
	logger *zap.SugaredLogger
}

// NewActivityStorage creates a new activity storage
func NewActivityStorage(db *DB, logger *zap.SugaredLogger) *ActivityStorage {
	return &ActivityStorage{db: db, logger: logger}
}

// GetActivity returns a single activity by id
func (s *ActivityStorage) GetActivity(ctx context.Context, id int64) (*core.Activity, error) {
	var a core.Activity
	err := s.db.ReadDB.QueryRowContext(ctx, s.db.Rebind(`
		SELECT id, name, parent_id, level FROM activities WHERE id = ?
	`), id).Scan(&a.ID, &a.Name, &a.ParentID, &a.Level)
	if err == sql.ErrNoRows {
		return nil, ErrActivityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get activity %d: %w", id, err)
	}
	return &a, nil
}

// ListActivities returns all activities ordered by level then id
func (s *ActivityStorage) ListActivities(ctx context.Context) ([]core.Activity, error) {
	rows, err := s.db.ReadDB.QueryContext(ctx, `
		SELECT id, name, parent_id, level FROM activities ORDER BY level, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}
	defer rows.Close()

	return scanActivities(rows)
}

// ListChildren returns the direct children of an activity
func (s *ActivityStorage) ListChildren(ctx context.Context, parentID int64) ([]core.Activity, error) {
	rows, err := s.db.ReadDB.QueryContext(ctx, s.db.Rebind(`
		SELECT id, name, parent_id, level FROM activities WHERE parent_id = ? ORDER BY id
	`), parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query child activities: %w", err)
	}
	defer rows.Close()

	return scanActivities(rows)
}

// FindActivityByName looks an activity up by name under a given parent.
// parentID nil matches root activities. Name plus parent is the natural key
// the seeder uses, so duplicates inside one parent are not expected.
func (s *ActivityStorage) FindActivityByName(ctx context.Context, name string, parentID *int64) (*core.Activity, error) {
	var (
		a   core.Activity
		err error
	)
	if parentID == nil {
		err = s.db.ReadDB.QueryRowContext(ctx, s.db.Rebind(`
			SELECT id, name, parent_id, level FROM activities WHERE name = ? AND parent_id IS NULL
		`), name).Scan(&a.ID, &a.Name, &a.ParentID, &a.Level)
	} else {
		err = s.db.ReadDB.QueryRowContext(ctx, s.db.Rebind(`
			SELECT id, name, parent_id, level FROM activities WHERE name = ? AND parent_id = ?
		`), name, *parentID).Scan(&a.ID, &a.Name, &a.ParentID, &a.Level)
	}
	if err == sql.ErrNoRows {
		return nil, ErrActivityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find activity by name: %w", err)
	}
	return &a, nil
}

// CreateActivity inserts an activity and returns it with the assigned id
func (s *ActivityStorage) CreateActivity(ctx context.Context, a core.Activity) (*core.Activity, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}

	if s.db.Driver == DriverPostgres {
		err := s.db.WriteDB.QueryRowContext(ctx, `
			INSERT INTO activities (name, parent_id, level) VALUES ($1, $2, $3) RETURNING id
		`, a.Name, a.ParentID, a.Level).Scan(&a.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to create activity: %w", err)
		}
		return &a, nil
	}

	res, err := s.db.WriteDB.ExecContext(ctx, `
		INSERT INTO activities (name, parent_id, level) VALUES (?, ?, ?)
	`, a.Name, a.ParentID, a.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to create activity: %w", err)
	}
	a.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read activity id: %w", err)
	}
	return &a, nil
}

func scanActivities(rows *sql.Rows) ([]core.Activity, error) {
	var activities []core.Activity
	for rows.Next() {
		var a core.Activity
		if err := rows.Scan(&a.ID, &a.Name, &a.ParentID, &a.Level); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}
