package db

import "database/sql"

// SchemaSQL is the complete modern schema for fresh installs.
// This schema reflects the current state after all migrations.
//
// # Schema Drift Protection
//
// This is the SINGLE SOURCE OF TRUTH for the local database schema. All
// repository tests load it through GetSchemaSQL(); a repository that
// references a column missing here fails its tests with "no such column".
//
// IMPORTANT: Keep this in sync with migrations.go.
//
// Observations reference hikes without ON DELETE CASCADE: deleting a migrated
// hike must never take unmigrated observations with it.
const SchemaSQL = `
CREATE TABLE IF NOT EXISTS hikes (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	name TEXT NOT NULL,
	location TEXT,
	notes TEXT,
	distance_meters REAL NOT NULL DEFAULT 0,
	started_at DATETIME,
	image_path TEXT,
	synced INTEGER NOT NULL DEFAULT 0,
	remote_id TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_hikes_owner ON hikes(owner_id);
CREATE INDEX IF NOT EXISTS idx_hikes_owner_synced ON hikes(owner_id, synced);

CREATE TABLE IF NOT EXISTS observations (
	id TEXT PRIMARY KEY,
	hike_id TEXT NOT NULL,
	owner_id TEXT NOT NULL,
	species TEXT NOT NULL,
	notes TEXT,
	latitude REAL NOT NULL DEFAULT 0,
	longitude REAL NOT NULL DEFAULT 0,
	observed_at DATETIME,
	image_path TEXT,
	synced INTEGER NOT NULL DEFAULT 0,
	remote_id TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (hike_id) REFERENCES hikes(id)
);

CREATE INDEX IF NOT EXISTS idx_observations_hike ON observations(hike_id);
CREATE INDEX IF NOT EXISTS idx_observations_owner_synced ON observations(owner_id, synced);

CREATE TABLE IF NOT EXISTS assets (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	entity_type TEXT NOT NULL CHECK(entity_type IN ('hike', 'observation')),
	entity_id TEXT NOT NULL,
	path TEXT NOT NULL,
	content_type TEXT,
	size_bytes INTEGER NOT NULL DEFAULT 0,
	synced INTEGER NOT NULL DEFAULT 0,
	remote_url TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_assets_owner_synced ON assets(owner_id, synced);
CREATE INDEX IF NOT EXISTS idx_assets_entity ON assets(entity_type, entity_id);

CREATE TABLE IF NOT EXISTS activity_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	actor_id TEXT,
	entity_type TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	action TEXT NOT NULL CHECK(action IN ('create', 'update', 'delete')),
	field_name TEXT,
	old_value TEXT,
	new_value TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_activity_log_created ON activity_log(created_at);
`

// InitSchema creates the schema on a fresh database and migrates an older one.
func InitSchema(database *sql.DB) error {
	// Check if schema_version table exists to determine if this is a fresh install
	var tableCount int
	err := database.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableCount)
	if err != nil {
		return err
	}

	if tableCount > 0 {
		// schema_version table exists - run any pending migrations
		return RunMigrations(database)
	}

	// Fresh install - create modern schema directly and mark every
	// migration as applied so none of them run.
	if _, err := database.Exec(SchemaSQL); err != nil {
		return err
	}
	if err := ensureVersionTable(database); err != nil {
		return err
	}
	for _, m := range migrations {
		if _, err := database.Exec("INSERT INTO schema_version (version) VALUES (?)", m.Version); err != nil {
			return err
		}
	}
	return nil
}

// GetSchemaSQL returns the authoritative schema SQL for use by tests.
// Tests should use this instead of hardcoding their own schema to prevent drift.
func GetSchemaSQL() string {
	return SchemaSQL
}
