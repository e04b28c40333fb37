package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"syncgate/contexts/data-sync/replication-service/domain/entities"
	"syncgate/contexts/data-sync/replication-service/ports"
)

func openTestReplica(t *testing.T) ports.Replica {
	t.Helper()
	path := filepath.Join(t.TempDir(), "replica.db")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	replica, err := NewReplica(db, "Customer", nil)
	if err != nil {
		t.Fatalf("wire replica: %v", err)
	}
	return replica
}

func TestSQLiteReplicaRoundTrip(t *testing.T) {
	ctx := context.Background()
	replica := openTestReplica(t)

	doc := entities.Document{"id": "c1", "name": "alpha"}
	if _, err := replica.Entities.Create(ctx, doc); err != nil {
		t.Fatalf("create document: %v", err)
	}
	loaded, found, err := replica.Entities.FindByID(ctx, "c1")
	if err != nil || !found {
		t.Fatalf("find document (err=%v, found=%v)", err, found)
	}
	if loaded["name"] != "alpha" {
		t.Fatalf("loaded name = %v, want alpha", loaded["name"])
	}

	change := entities.Change{
		ID:        entities.ChangeID("Customer", "c1"),
		ModelName: "Customer",
		ModelID:   "c1",
		Rev:       entities.Revision(loaded),
	}
	if _, err := replica.Changes.Save(ctx, change); err != nil {
		t.Fatalf("save change: %v", err)
	}
	stored, found, err := replica.Changes.FindByModelID(ctx, "c1")
	if err != nil || !found {
		t.Fatalf("find change (err=%v, found=%v)", err, found)
	}
	if stored.Rev != change.Rev {
		t.Fatalf("stored rev %q, want %q", stored.Rev, change.Rev)
	}

	seq, err := replica.Checkpoints.Bump(ctx)
	if err != nil {
		t.Fatalf("bump checkpoint: %v", err)
	}
	if seq != 2 {
		t.Fatalf("first bump = %d, want 2", seq)
	}
	current, err := replica.Checkpoints.Current(ctx)
	if err != nil || current != seq {
		t.Fatalf("current = %d (err=%v), want %d", current, err, seq)
	}
}

func TestSQLiteSinceFiltersByCheckpoint(t *testing.T) {
	ctx := context.Background()
	replica := openTestReplica(t)

	for i, id := range []string{"a", "b", "c"} {
		change := entities.Change{
			ID:         entities.ChangeID("Customer", id),
			ModelName:  "Customer",
			ModelID:    id,
			Rev:        "r1",
			Checkpoint: int64(i + 1),
		}
		if _, err := replica.Changes.Save(ctx, change); err != nil {
			t.Fatalf("save change %s: %v", id, err)
		}
	}
	recent, err := replica.Changes.Since(ctx, 2, 0, 0)
	if err != nil {
		t.Fatalf("since: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 recent changes, got %d", len(recent))
	}
	all, err := replica.Changes.All(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 changes, got %d", len(all))
	}
}
