package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"orgdir/core"

	"go.uber.org/zap"
)

// OrganizationStorage provides access to organizations, their phone numbers
// and their activity links
type OrganizationStorage struct {
	db     *DB
	logger *zap.SugaredLogger
}

// NewOrganizationStorage creates a new organization storage
func NewOrganizationStorage(db *DB, logger *zap.SugaredLogger) *OrganizationStorage {
	return &OrganizationStorage{db: db, logger: logger}
}

const organizationColumns = "id, name, building_id"

// ListOrganizationsByName returns organizations whose name contains the given
// substring, case-insensitively. An empty name matches everything.
func (s *OrganizationStorage) ListOrganizationsByName(ctx context.Context, name string, skip, limit int) ([]core.Organization, error) {
	pattern := "%" + strings.ToLower(name) + "%"
	rows, err := s.db.ReadDB.QueryContext(ctx, s.db.Rebind(`
		SELECT `+organizationColumns+` FROM organizations
		WHERE LOWER(name) LIKE ?
		ORDER BY id
		LIMIT ? OFFSET ?
	`), pattern, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("failed to query organizations by name: %w", err)
	}
	defer rows.Close()

	return scanOrganizations(rows)
}

// ListOrganizationsByBuilding returns organizations located in a building
func (s *OrganizationStorage) ListOrganizationsByBuilding(ctx context.Context, buildingID int64, skip, limit int) ([]core.Organization, error) {
	rows, err := s.db.ReadDB.QueryContext(ctx, s.db.Rebind(`
		SELECT `+organizationColumns+` FROM organizations
		WHERE building_id = ?
		ORDER BY id
		LIMIT ? OFFSET ?
	`), buildingID, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("failed to query organizations by building: %w", err)
	}
	defer rows.Close()

	return scanOrganizations(rows)
}

// ListOrganizationsByBuildingIDs returns organizations located in any of the
// given buildings. An empty id list yields an empty result.
func (s *OrganizationStorage) ListOrganizationsByBuildingIDs(ctx context.Context, buildingIDs []int64, skip, limit int) ([]core.Organization, error) {
	if len(buildingIDs) == 0 {
		return nil, nil
	}

	placeholders, args := inClauseArgs(buildingIDs)
	args = append(args, limit, skip)

	rows, err := s.db.ReadDB.QueryContext(ctx, s.db.Rebind(`
		SELECT `+organizationColumns+` FROM organizations
		WHERE building_id IN (`+placeholders+`)
		ORDER BY id
		LIMIT ? OFFSET ?
	`), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query organizations by buildings: %w", err)
	}
	defer rows.Close()

	return scanOrganizations(rows)
}

// ListOrganizationsByActivityIDs returns organizations linked to any of the
// given activities. An empty id list yields an empty result.
func (s *OrganizationStorage) ListOrganizationsByActivityIDs(ctx context.Context, activityIDs []int64, skip, limit int) ([]core.Organization, error) {
	if len(activityIDs) == 0 {
		return nil, nil
	}

	placeholders, args := inClauseArgs(activityIDs)
	args = append(args, limit, skip)

	rows, err := s.db.ReadDB.QueryContext(ctx, s.db.Rebind(`
		SELECT DISTINCT o.id, o.name, o.building_id
		FROM organizations o
		JOIN organization_activities oa ON oa.organization_id = o.id
		WHERE oa.activity_id IN (`+placeholders+`)
		ORDER BY o.id
		LIMIT ? OFFSET ?
	`), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query organizations by activities: %w", err)
	}
	defer rows.Close()

	return scanOrganizations(rows)
}

// GetOrganizationDetail returns an organization together with its building,
// phone numbers and activities
func (s *OrganizationStorage) GetOrganizationDetail(ctx context.Context, id int64) (*core.OrganizationDetail, error) {
	var detail core.OrganizationDetail
	err := s.db.ReadDB.QueryRowContext(ctx, s.db.Rebind(`
		SELECT o.id, o.name, o.building_id, b.id, b.address, b.latitude, b.longitude
		FROM organizations o
		JOIN buildings b ON b.id = o.building_id
		WHERE o.id = ?
	`), id).Scan(
		&detail.ID, &detail.Name, &detail.BuildingID,
		&detail.Building.ID, &detail.Building.Address,
		&detail.Building.Latitude, &detail.Building.Longitude,
	)
	if err == sql.ErrNoRows {
		return nil, ErrOrganizationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization %d: %w", id, err)
	}

	phoneRows, err := s.db.ReadDB.QueryContext(ctx, s.db.Rebind(`
		SELECT id, number, organization_id FROM phone_numbers
		WHERE organization_id = ? ORDER BY id
	`), id)
	if err != nil {
		return nil, fmt.Errorf("failed to query phone numbers: %w", err)
	}
	defer phoneRows.Close()

	for phoneRows.Next() {
		var p core.PhoneNumber
		if err := phoneRows.Scan(&p.ID, &p.Number, &p.OrganizationID); err != nil {
			return nil, fmt.Errorf("failed to scan phone number: %w", err)
		}
		detail.PhoneNumbers = append(detail.PhoneNumbers, p)
	}
	if err := phoneRows.Err(); err != nil {
		return nil, err
	}

	activityRows, err := s.db.ReadDB.QueryContext(ctx, s.db.Rebind(`
		SELECT a.id, a.name, a.parent_id, a.level
		FROM activities a
		JOIN organization_activities oa ON oa.activity_id = a.id
		WHERE oa.organization_id = ?
		ORDER BY a.id
	`), id)
	if err != nil {
		return nil, fmt.Errorf("failed to query organization activities: %w", err)
	}
	defer activityRows.Close()

	detail.Activities, err = scanActivities(activityRows)
	if err != nil {
		return nil, err
	}

	return &detail, nil
}

// FindOrganizationByName looks an organization up by its exact name.
// Names are the natural key for idempotent seeding.
func (s *OrganizationStorage) FindOrganizationByName(ctx context.Context, name string) (*core.Organization, error) {
	var o core.Organization
	err := s.db.ReadDB.QueryRowContext(ctx, s.db.Rebind(`
		SELECT `+organizationColumns+` FROM organizations WHERE name = ?
	`), name).Scan(&o.ID, &o.Name, &o.BuildingID)
	if err == sql.ErrNoRows {
		return nil, ErrOrganizationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find organization by name: %w", err)
	}
	return &o, nil
}

// CreateOrganization inserts an organization and returns it with the assigned id
func (s *OrganizationStorage) CreateOrganization(ctx context.Context, o core.Organization) (*core.Organization, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}

	if s.db.Driver == DriverPostgres {
		err := s.db.WriteDB.QueryRowContext(ctx, `
			INSERT INTO organizations (name, building_id) VALUES ($1, $2) RETURNING id
		`, o.Name, o.BuildingID).Scan(&o.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to create organization: %w", err)
		}
		return &o, nil
	}

	res, err := s.db.WriteDB.ExecContext(ctx, `
		INSERT INTO organizations (name, building_id) VALUES (?, ?)
	`, o.Name, o.BuildingID)
	if err != nil {
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}
	o.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read organization id: %w", err)
	}
	return &o, nil
}

// HasPhoneNumber reports whether the organization already has the given number
func (s *OrganizationStorage) HasPhoneNumber(ctx context.Context, organizationID int64, number string) (bool, error) {
	var count int
	err := s.db.ReadDB.QueryRowContext(ctx, s.db.Rebind(`
		SELECT COUNT(*) FROM phone_numbers WHERE organization_id = ? AND number = ?
	`), organizationID, number).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check phone number: %w", err)
	}
	return count > 0, nil
}

// AddPhoneNumber attaches a phone number to an organization
func (s *OrganizationStorage) AddPhoneNumber(ctx context.Context, organizationID int64, number string) error {
	_, err := s.db.WriteDB.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO phone_numbers (number, organization_id) VALUES (?, ?)
	`), number, organizationID)
	if err != nil {
		return fmt.Errorf("failed to add phone number: %w", err)
	}
	return nil
}

// LinkActivity links an organization to an activity. Linking the same pair
// twice is a no-op.
func (s *OrganizationStorage) LinkActivity(ctx context.Context, organizationID, activityID int64) error {
	var query string
	if s.db.Driver == DriverPostgres {
		query = `INSERT INTO organization_activities (organization_id, activity_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	} else {
		query = `INSERT OR IGNORE INTO organization_activities (organization_id, activity_id) VALUES (?, ?)`
	}
	if _, err := s.db.WriteDB.ExecContext(ctx, query, organizationID, activityID); err != nil {
		return fmt.Errorf("failed to link activity: %w", err)
	}
	return nil
}

// CountOrganizations returns the total number of organizations
func (s *OrganizationStorage) CountOrganizations(ctx context.Context) (int, error) {
	var count int
	if err := s.db.ReadDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM organizations`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count organizations: %w", err)
	}
	return count, nil
}

func scanOrganizations(rows *sql.Rows) ([]core.Organization, error) {
	var orgs []core.Organization
	for rows.Next() {
		var o core.Organization
		if err := rows.Scan(&o.ID, &o.Name, &o.BuildingID); err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, o)
	}
	return orgs, rows.Err()
}

// inClauseArgs builds a "?, ?, ?" placeholder list and the matching argument
// slice for an IN clause
func inClauseArgs(ids []int64) (string, []interface{}) {
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	return strings.Join(placeholders, ", "), args
}
