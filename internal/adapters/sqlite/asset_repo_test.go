package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/example/hikelog/internal/adapters/sqlite"
	"github.com/example/hikelog/internal/ports/secondary"
)

func TestAssetRepository_CreateAndList(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewAssetRepository(db)
	ctx := context.Background()

	for _, entity := range []string{"HIKE-001", "HIKE-002"} {
		id, err := repo.GetNextID(ctx)
		if err != nil {
			t.Fatalf("GetNextID failed: %v", err)
		}
		err = repo.Create(ctx, &secondary.AssetRecord{
			ID:          id,
			OwnerID:     "guest-1",
			EntityType:  "hike",
			EntityID:    entity,
			Path:        "/assets/guest-1/" + entity + ".jpg",
			ContentType: "image/jpeg",
			SizeBytes:   2048,
		})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	all, err := repo.ListByOwner(ctx, "guest-1", false)
	if err != nil {
		t.Fatalf("ListByOwner failed: %v", err)
	}
	if len(all) != 2 || all[0].ID != "ASSET-001" || all[1].ID != "ASSET-002" {
		t.Fatalf("unexpected assets: %d", len(all))
	}
	if all[0].ContentType != "image/jpeg" || all[0].SizeBytes != 2048 {
		t.Errorf("unexpected asset fields: %+v", all[0])
	}

	if err := repo.MarkSynced(ctx, map[string]string{"ASSET-001": "https://objects/u/1.jpg"}); err != nil {
		t.Fatalf("MarkSynced failed: %v", err)
	}

	unsynced, _ := repo.ListByOwner(ctx, "guest-1", true)
	if len(unsynced) != 1 || unsynced[0].ID != "ASSET-002" {
		t.Errorf("expected ASSET-002 unsynced")
	}

	synced, _ := repo.ListSynced(ctx, "guest-1")
	if len(synced) != 1 || synced[0].RemoteURL != "https://objects/u/1.jpg" {
		t.Errorf("expected ASSET-001 synced with remote URL")
	}
}

func TestAssetRepository_InvalidEntityType(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewAssetRepository(db)

	err := repo.Create(context.Background(), &secondary.AssetRecord{
		ID: "ASSET-001", OwnerID: "guest-1", EntityType: "trail", EntityID: "x", Path: "/p",
	})
	if err == nil {
		t.Error("expected check constraint failure for entity type")
	}
}

func TestAssetRepository_ListSyncedBefore(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewAssetRepository(db)
	ctx := context.Background()

	seedAsset(t, db, "ASSET-001", "guest-1", "", true, "2026-01-01 00:00:00")
	seedAsset(t, db, "ASSET-002", "guest-1", "", true, "2026-03-01 00:00:00")
	seedAsset(t, db, "ASSET-003", "guest-2", "", false, "2025-12-01 00:00:00")

	cutoff := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	old, err := repo.ListSyncedBefore(ctx, cutoff)
	if err != nil {
		t.Fatalf("ListSyncedBefore failed: %v", err)
	}
	if len(old) != 1 || old[0].ID != "ASSET-001" {
		t.Fatalf("expected only ASSET-001, got %d assets", len(old))
	}

	everyone, _ := repo.ListSynced(ctx, "")
	if len(everyone) != 2 {
		t.Errorf("expected 2 synced assets across owners, got %d", len(everyone))
	}
}

func TestAssetRepository_DeleteIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewAssetRepository(db)
	ctx := context.Background()

	seedAsset(t, db, "", "", "", false, "")

	if err := repo.Delete(ctx, "ASSET-001"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := repo.Delete(ctx, "ASSET-001"); err != nil {
		t.Errorf("second Delete should succeed, got %v", err)
	}
	if _, err := repo.GetByID(ctx, "ASSET-001"); err == nil {
		t.Error("expected asset to be gone")
	}
}
