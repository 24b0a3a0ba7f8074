package db

import (
	"database/sql"
	"fmt"

	"github.com/example/hikelog/internal/logging"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.Tx) error
}

// migrations is the list of all migrations in order
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_hikes_and_observations",
		Up:      migrationV1,
	},
	{
		Version: 2,
		Name:    "add_sync_columns",
		Up:      migrationV2,
	},
	{
		Version: 3,
		Name:    "add_image_paths_and_assets_table",
		Up:      migrationV3,
	},
	{
		Version: 4,
		Name:    "add_activity_log",
		Up:      migrationV4,
	},
}

func ensureVersionTable(database *sql.DB) error {
	_, err := database.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}
	return nil
}

// RunMigrations executes all pending migrations
func RunMigrations(database *sql.DB) error {
	if err := ensureVersionTable(database); err != nil {
		return err
	}

	// Get current schema version
	var currentVersion int
	err := database.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	// Run pending migrations
	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		logging.Info().Int("version", migration.Version).Str("name", migration.Name).Msg("running migration")

		tx, err := database.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		if err := migration.Up(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}

		// Record migration
		_, err = tx.Exec("INSERT INTO schema_version (version) VALUES (?)", migration.Version)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// migrationV1 creates the original hike and observation tables
func migrationV1(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS hikes (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			name TEXT NOT NULL,
			location TEXT,
			notes TEXT,
			distance_meters REAL NOT NULL DEFAULT 0,
			started_at DATETIME,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_hikes_owner ON hikes(owner_id);

		CREATE TABLE IF NOT EXISTS observations (
			id TEXT PRIMARY KEY,
			hike_id TEXT NOT NULL,
			owner_id TEXT NOT NULL,
			species TEXT NOT NULL,
			notes TEXT,
			latitude REAL NOT NULL DEFAULT 0,
			longitude REAL NOT NULL DEFAULT 0,
			observed_at DATETIME,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (hike_id) REFERENCES hikes(id)
		);
		CREATE INDEX IF NOT EXISTS idx_observations_hike ON observations(hike_id);
	`)
	return err
}

// migrationV2 adds the synced marker and remote id used by guest migration
func migrationV2(tx *sql.Tx) error {
	statements := []string{
		"ALTER TABLE hikes ADD COLUMN synced INTEGER NOT NULL DEFAULT 0",
		"ALTER TABLE hikes ADD COLUMN remote_id TEXT",
		"ALTER TABLE observations ADD COLUMN synced INTEGER NOT NULL DEFAULT 0",
		"ALTER TABLE observations ADD COLUMN remote_id TEXT",
		"CREATE INDEX IF NOT EXISTS idx_hikes_owner_synced ON hikes(owner_id, synced)",
		"CREATE INDEX IF NOT EXISTS idx_observations_owner_synced ON observations(owner_id, synced)",
	}
	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("%s: %w", stmt, err)
		}
	}
	return nil
}

// migrationV3 adds image references and the assets table
func migrationV3(tx *sql.Tx) error {
	statements := []string{
		"ALTER TABLE hikes ADD COLUMN image_path TEXT",
		"ALTER TABLE observations ADD COLUMN image_path TEXT",
		`CREATE TABLE IF NOT EXISTS assets (
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
		)`,
		"CREATE INDEX IF NOT EXISTS idx_assets_owner_synced ON assets(owner_id, synced)",
		"CREATE INDEX IF NOT EXISTS idx_assets_entity ON assets(entity_type, entity_id)",
	}
	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply %q: %w", stmt, err)
		}
	}
	return nil
}

// migrationV4 adds the activity log
func migrationV4(tx *sql.Tx) error {
	_, err := tx.Exec(`
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
	`)
	return err
}
