package storage

import "database/sql"

// registerSQLiteMigrations registers all SQLite migrations with the runner
func registerSQLiteMigrations(runner *MigrationRunner) {
	// Migration 1.0.0: Base directory schema
	runner.Register(Migration{
		Version:     "1.0.0",
		Name:        "initial_schema",
		Description: "Base schema: buildings, activities, organizations, phone_numbers, organization_activities",
		Up: func(tx *sql.Tx) error {
			schema := `
			CREATE TABLE IF NOT EXISTS buildings (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				address TEXT NOT NULL,
				latitude REAL NOT NULL CHECK (latitude >= -90 AND latitude <= 90),
				longitude REAL NOT NULL CHECK (longitude >= -180 AND longitude <= 180)
			);

			CREATE TABLE IF NOT EXISTS activities (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL,
				parent_id INTEGER REFERENCES activities(id),
				level INTEGER NOT NULL DEFAULT 1 CHECK (level >= 1 AND level <= 3)
			);

			CREATE TABLE IF NOT EXISTS organizations (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL,
				building_id INTEGER NOT NULL REFERENCES buildings(id)
			);

			CREATE TABLE IF NOT EXISTS phone_numbers (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				number TEXT NOT NULL,
				organization_id INTEGER NOT NULL REFERENCES organizations(id) ON DELETE CASCADE
			);

			CREATE TABLE IF NOT EXISTS organization_activities (
				organization_id INTEGER NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
				activity_id INTEGER NOT NULL REFERENCES activities(id) ON DELETE CASCADE,
				PRIMARY KEY (organization_id, activity_id)
			);
			`
			_, err := tx.Exec(schema)
			return err
		},
		Down: nil, // Cannot rollback initial schema
	})

	// Migration 1.1.0: Lookup indexes for the common query paths
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

	// Migration 1.2.0: Unique building addresses.
	// The seeder keys buildings by address, so duplicates would break idempotency.
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
