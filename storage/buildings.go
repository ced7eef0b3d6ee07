package storage

import (
	"context"
	"database/sql"
	"fmt"

	"orgdir/core"

	"go.uber.org/zap"
)

// BuildingStorage provides access to the buildings table
type BuildingStorage struct {
	db     *DB
	logger *zap.SugaredLogger
}

// NewBuildingStorage creates a new building storage
func NewBuildingStorage(db *DB, logger *zap.SugaredLogger) *BuildingStorage {
	return &BuildingStorage{db: db, logger: logger}
}

// ListBuildings returns all buildings ordered by id
func (s *BuildingStorage) ListBuildings(ctx context.Context) ([]core.Building, error) {
	rows, err := s.db.ReadDB.QueryContext(ctx, `
		SELECT id, address, latitude, longitude FROM buildings ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query buildings: %w", err)
	}
	defer rows.Close()

	return scanBuildings(rows)
}

// GetBuilding returns a single building by id
func (s *BuildingStorage) GetBuilding(ctx context.Context, id int64) (*core.Building, error) {
	var b core.Building
	err := s.db.ReadDB.QueryRowContext(ctx, s.db.Rebind(`
		SELECT id, address, latitude, longitude FROM buildings WHERE id = ?
	`), id).Scan(&b.ID, &b.Address, &b.Latitude, &b.Longitude)
	if err == sql.ErrNoRows {
		return nil, ErrBuildingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get building %d: %w", id, err)
	}
	return &b, nil
}

// FindBuildingByAddress looks a building up by its address. Addresses are
// unique, which makes them the natural key for idempotent seeding.
func (s *BuildingStorage) FindBuildingByAddress(ctx context.Context, address string) (*core.Building, error) {
	var b core.Building
	err := s.db.ReadDB.QueryRowContext(ctx, s.db.Rebind(`
		SELECT id, address, latitude, longitude FROM buildings WHERE address = ?
	`), address).Scan(&b.ID, &b.Address, &b.Latitude, &b.Longitude)
	if err == sql.ErrNoRows {
		return nil, ErrBuildingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find building by address: %w", err)
	}
	return &b, nil
}

// CreateBuilding inserts a building and returns it with the assigned id
func (s *BuildingStorage) CreateBuilding(ctx context.Context, b core.Building) (*core.Building, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	if s.db.Driver == DriverPostgres {
		err := s.db.WriteDB.QueryRowContext(ctx, `
			INSERT INTO buildings (address, latitude, longitude) VALUES ($1, $2, $3) RETURNING id
		`, b.Address, b.Latitude, b.Longitude).Scan(&b.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to create building: %w", err)
		}
		return &b, nil
	}

	res, err := s.db.WriteDB.ExecContext(ctx, `
		INSERT INTO buildings (address, latitude, longitude) VALUES (?, ?, ?)
	`, b.Address, b.Latitude, b.Longitude)
	if err != nil {
		return nil, fmt.Errorf("failed to create building: %w", err)
	}
	b.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read building id: %w", err)
	}
	return &b, nil
}

// ListBuildingsInBox returns buildings whose coordinates fall inside the
// bounding box. Edge coordinates are included.
func (s *BuildingStorage) ListBuildingsInBox(ctx context.Context, box core.BoundingBox) ([]core.Building, error) {
	rows, err := s.db.ReadDB.QueryContext(ctx, s.db.Rebind(`
		SELECT id, address, latitude, longitude FROM buildings
		WHERE latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?
		ORDER BY id
	`), box.MinLatitude, box.MaxLatitude, box.MinLongitude, box.MaxLongitude)
	if err != nil {
		return nil, fmt.Errorf("failed to query buildings in box: %w", err)
	}
	defer rows.Close()

	return scanBuildings(rows)
}

func scanBuildings(rows *sql.Rows) ([]core.Building, error) {
	var buildings []core.Building
	for rows.Next() {
		var b core.Building
		if err := rows.Scan(&b.ID, &b.Address, &b.Latitude, &b.Longitude); err != nil {
			return nil, fmt.Errorf("failed to scan building: %w", err)
		}
		buildings = append(buildings, b)
	}
	return buildings, rows.Err()
}
