package sqlite_test

import (
	"context"
	"testing"

	"github.com/example/hikelog/internal/adapters/sqlite"
	"github.com/example/hikelog/internal/ctxutil"
)

func TestLogWriterAdapter_WritesAndLists(t *testing.T) {
	db := setupTestDB(t)
	writer := sqlite.NewLogWriterAdapter(db)
	ctx := ctxutil.WithActorID(context.Background(), "guest-1")

	if err := writer.LogCreate(ctx, "hike", "HIKE-001"); err != nil {
		t.Fatalf("LogCreate failed: %v", err)
	}
	if err := writer.LogUpdate(ctx, "hike", "HIKE-001", "name", "Ridge", "Ridge Loop"); err != nil {
		t.Fatalf("LogUpdate failed: %v", err)
	}
	if err := writer.LogDelete(context.Background(), "observation", "OBS-001"); err != nil {
		t.Fatalf("LogDelete failed: %v", err)
	}

	entries, err := writer.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	if entries[0].Action != "delete" || entries[0].ActorID != "" {
		t.Errorf("expected newest entry to be an anonymous delete, got %+v", entries[0])
	}
	if entries[1].FieldName != "name" || entries[1].OldValue != "Ridge" || entries[1].NewValue != "Ridge Loop" {
		t.Errorf("unexpected update entry: %+v", entries[1])
	}
	if entries[2].ActorID != "guest-1" {
		t.Errorf("expected actor guest-1, got %q", entries[2].ActorID)
	}

	limited, _ := writer.Recent(context.Background(), 1)
	if len(limited) != 1 {
		t.Errorf("expected limit to apply, got %d", len(limited))
	}
}
