package storage

import "database/sql"

// registerPostgresMigrations registers all PostgreSQL migrations with the runner.
// Versions are kept in lockstep with the SQLite set so either backend reports
// the same schema level.
func registerPostgresMigrations(runner *MigrationRunner) {
	runner.Register(Migration{
		Version:     "1.0.0",
		Name:        "initial_schema",
		Description: "Base schema: buildings, activities, organizations, phone_numbers, organization_activities",
		Up: func(tx *sql.Tx) error {
			schema := `
			CREATE TABLE IF NOT EXISTS buildings (
				id BIGSERIAL PRIMARY KEY,
				address TEXT NOT NULL,
				latitude DOUBLE PRECISION NOT NULL CHECK (latitude >= -90 AND latitude <= 90),
				longitude DOUBLE PRECISION NOT NULL CHECK (longitude >= -180 AND longitude <= 180)
			);

			CREATE TABLE IF NOT EXISTS activities (
				id BIGSERIAL PRIMARY KEY,
				name TEXT NOT NULL,
				parent_id BIGINT REFERENCES activities(id),
				level INTEGER NOT NULL DEFAULT 1 CHECK (level >= 1 AND level <= 3)
			);

			CREATE TABLE IF NOT EXISTS organizations (
				id BIGSERIAL PRIMARY KEY,
				name TEXT NOT NULL,
				building_id BIGINT NOT NULL REFERENCES buildings(id)
			);

			CREATE TABLE IF NOT EXISTS phone_numbers (
				id BIGSERIAL PRIMARY KEY,
				number TEXT NOT NULL,
				organization_id BIGINT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE
			);

			CREATE TABLE IF NOT EXISTS organization_activities (
				organization_id BIGINT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
				activity_id BIGINT NOT NULL REFERENCES activities(id) ON DELETE CASCADE,
				PRIMARY KEY (organization_id, activity_id)
			);
			`
			_, err := tx.Exec(schema)
			return err
		},
		Down: nil, // Cannot rollback initial schema
	})

	runner.Register(Migration{
		Version:     "1.1.0",
		Name:        "add_directory_indexes",
		Description: "Indexes on organization name/building, activity parent, phone owner and building coordinates",
		Up: func(tx *sql.Tx) error {
			schema := `
			CREATE INDEX IF NOT EXISTS idx_organizations_name ON organizations(name);
			CREATE INDEX IF NOT EXISTS idx_organizations_building_id ON organizations(building_id);
			CREATE INDEX IF NOT EXISTS idx_activities_parent_id ON activities(parent_id);
			CREATE INDEX IF NOT EXISTS idx_phone_numbers_organization_id ON phone_numbers(organization_id);
			CREATE INDEX IF NOT EXISTS idx_buildings_coordinates ON buildings(latitude, longitude);
			`
			_, err := tx.Exec(schema)
			return err
		},
		Down: func(tx *sql.Tx) error {
			schema := `
			DROP INDEX IF EXISTS idx_organizations_name;
			DROP INDEX IF EXISTS idx_organizations_building_id;
			DROP INDEX IF EXISTS idx_activities_parent_id;
			DROP INDEX IF EXISTS idx_phone_numbers_organization_id;
			DROP INDEX IF EXISTS idx_buildings_coordinates;
			`
			_, err := tx.Exec(schema)
			return err
		},
	})

	runner.Register(Migration{
		Version:     "1.2.0",
		Name:        "unique_building_address",
		Description: "Unique index on buildings.address to back natural-key seeding",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_buildings_address ON buildings(address)`)
			return err
		},
		Down: func(tx *sql.Tx) error {
			_, err := tx.Exec(`DROP INDEX IF EXISTS idx_buildings_address`)
			return err
		},
	})
}
