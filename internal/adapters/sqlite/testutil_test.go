// Package sqlite_test contains integration tests for SQLite repositories.
//
// # Schema Protection
//
// This file is the SINGLE POINT where the database schema is loaded for tests.
// All test setup functions use db.GetSchemaSQL() to ensure tests run against
// the authoritative schema, preventing drift between test and production.
//
// DO NOT hardcode CREATE TABLE statements in test files. Use setupTestDB()
// and the seed* helpers instead.
package sqlite_test

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/hikelog/internal/db"
)

// setupTestDB creates an in-memory database with the authoritative schema.
// The pool is pinned to one connection: every connection to :memory: is a
// separate database, and watch goroutines query concurrently with the test.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := sql.Open("sqlite3", "file::memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	testDB.SetMaxOpenConns(1)

	_, err = testDB.Exec(db.GetSchemaSQL())
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

// seedHike inserts a test hike and returns its ID.
func seedHike(t *testing.T, db *sql.DB, id, ownerID, name string) string {
	t.Helper()
	if id == "" {
		id = "HIKE-001"
	}
	if ownerID == "" {
		ownerID = "guest-1"
	}
	if name == "" {
		name = "Test Hike"
	}
	_, err := db.Exec("INSERT INTO hikes (id, owner_id, name) VALUES (?, ?, ?)", id, ownerID, name)
	if err != nil {
		t.Fatalf("failed to seed hike: %v", err)
	}
	return id
}

// seedObservation inserts a test observation and returns its ID.
func seedObservation(t *testing.T, db *sql.DB, id, hikeID, ownerID string) string {
	t.Helper()
	if id == "" {
		id = "OBS-001"
	}
	if hikeID == "" {
		hikeID = "HIKE-001"
	}
	if ownerID == "" {
		ownerID = "guest-1"
	}
	_, err := db.Exec("INSERT INTO observations (id, hike_id, owner_id, species) VALUES (?, ?, ?, 'marmot')", id, hikeID, ownerID)
	if err != nil {
		t.Fatalf("failed to seed observation: %v", err)
	}
	return id
}

// seedAsset inserts a test asset row and returns its ID.
func seedAsset(t *testing.T, db *sql.DB, id, ownerID, entityID string, synced bool, createdAt string) string {
	t.Helper()
	if id == "" {
		id = "ASSET-001"
	}
	if ownerID == "" {
		ownerID = "guest-1"
	}
	if entityID == "" {
		entityID = "HIKE-001"
	}
	if createdAt == "" {
		createdAt = "2026-01-01 00:00:00"
	}
	_, err := db.Exec(
		`INSERT INTO assets (id, owner_id, entity_type, entity_id, path, size_bytes, synced, created_at)
		 VALUES (?, ?, 'hike', ?, ?, 100, ?, ?)`,
		id, ownerID, entityID, "/assets/"+ownerID+"/"+id+".jpg", synced, createdAt,
	)
	if err != nil {
		t.Fatalf("failed to seed asset: %v", err)
	}
	return id
}
