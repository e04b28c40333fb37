package commands

import (
	"context"
	"fmt"
	"testing"

	"syncgate/contexts/data-sync/replication-service/adapters/memory"
	"syncgate/contexts/data-sync/replication-service/domain/entities"
	domainerrors "syncgate/contexts/data-sync/replication-service/domain/errors"
	"syncgate/contexts/data-sync/replication-service/ports"
)

func seedEntity(t *testing.T, replica ports.Replica, doc entities.Document) {
	t.Helper()
	ctx := context.Background()
	if _, err := replica.Entities.Create(ctx, doc); err != nil {
		t.Fatalf("seed entity: %v", err)
	}
	if _, err := NewTracker(replica, nil).Rectify(ctx, doc.ID()); err != nil {
		t.Fatalf("rectify seeded entity: %v", err)
	}
}

func TestReplicatePropagatesCreates(t *testing.T) {
	ctx := context.Background()
	source := memory.NewReplica("Customer")
	target := memory.NewReplica("Customer")

	seedEntity(t, source, entities.Document{"id": "c1", "name": "alpha"})
	seedEntity(t, source, entities.Document{"id": "c2", "name": "beta"})

	result, err := ReplicateUseCase{}.Execute(ctx, source, target, CheckpointPair{})
	if err != nil {
		t.Fatalf("replicate: %v", err)
	}
	if len(result.Conflicts) != 0 {
		t.Fatalf("expected no conflicts, got %d", len(result.Conflicts))
	}
	for _, id := range []string{"c1", "c2"} {
		doc, found, err := target.Entities.FindByID(ctx, id)
		if err != nil || !found {
			t.Fatalf("entity %s missing on target (err=%v)", id, err)
		}
		want, _, _ := source.Entities.FindByID(ctx, id)
		if entities.Revision(doc) != entities.Revision(want) {
			t.Fatalf("entity %s diverged after replication", id)
		}
	}
}

func TestReplicatePropagatesDeletes(t *testing.T) {
	ctx := context.Background()
	source := memory.NewReplica("Customer")
	target := memory.NewReplica("Customer")

	seedEntity(t, source, entities.Document{"id": "c1", "name": "alpha"})
	result, err := ReplicateUseCase{}.Execute(ctx, source, target, CheckpointPair{})
	if err != nil {
		t.Fatalf("initial replicate: %v", err)
	}

	if err := source.Entities.DestroyByID(ctx, "c1"); err != nil {
		t.Fatalf("destroy entity: %v", err)
	}
	if _, err := NewTracker(source, nil).Rectify(ctx, "c1"); err != nil {
		t.Fatalf("rectify delete: %v", err)
	}

	result, err = ReplicateUseCase{}.Execute(ctx, source, target, result.Checkpoints)
	if err != nil {
		t.Fatalf("second replicate: %v", err)
	}
	if len(result.Conflicts) != 0 {
		t.Fatalf("expected no conflicts, got %d", len(result.Conflicts))
	}
	if _, found, _ := target.Entities.FindByID(ctx, "c1"); found {
		t.Fatal("delete must propagate to the target")
	}
}

func TestReplicateSurfacesConcurrentCreateConflict(t *testing.T) {
	ctx := context.Background()
	source := memory.NewReplica("Customer")
	target := memory.NewReplica("Customer")

	seedEntity(t, source, entities.Document{"id": "c1", "name": "source wins"})
	seedEntity(t, target, entities.Document{"id": "c1", "name": "target wins"})

	result, err := ReplicateUseCase{}.Execute(ctx, source, target, CheckpointPair{})
	if err != nil {
		t.Fatalf("replicate: %v", err)
	}
	if len(result.Conflicts) != 1 {
		t.Fatalf("expected one conflict, got %d", len(result.Conflicts))
	}
	conflict := result.Conflicts[0]
	if conflict.ModelID != "c1" {
		t.Fatalf("conflict on %q, want c1", conflict.ModelID)
	}

	sourceKind, targetKind, err := conflict.Kinds(ctx)
	if err != nil {
		t.Fatalf("conflict kinds: %v", err)
	}
	if sourceKind != entities.ChangeCreate || targetKind != entities.ChangeCreate {
		t.Fatalf("expected create/create, got %s/%s", sourceKind, targetKind)
	}

	// The losing write stays put until somebody resolves.
	doc, _, _ := target.Entities.FindByID(ctx, "c1")
	if doc["name"] != "target wins" {
		t.Fatal("an unresolved conflict must not overwrite the target")
	}
}

func TestResolveUsingSourceConverges(t *testing.T) {
	ctx := context.Background()
	source := memory.NewReplica("Customer")
	target := memory.NewReplica("Customer")

	seedEntity(t, source, entities.Document{"id": "c1", "name": "source wins"})
	seedEntity(t, target, entities.Document{"id": "c1", "name": "target wins"})

	result, err := ReplicateUseCase{}.Execute(ctx, source, target, CheckpointPair{})
	if err != nil {
		t.Fatalf("replicate: %v", err)
	}
	if len(result.Conflicts) != 1 {
		t.Fatalf("expected one conflict, got %d", len(result.Conflicts))
	}
	if err := result.Conflicts[0].ResolveUsingSource(ctx); err != nil {
		t.Fatalf("resolve using source: %v", err)
	}

	result, err = ReplicateUseCase{}.Execute(ctx, source, target, result.Checkpoints)
	if err != nil {
		t.Fatalf("replicate after resolution: %v", err)
	}
	if len(result.Conflicts) != 0 {
		t.Fatalf("resolution must clear the conflict, got %d", len(result.Conflicts))
	}

	sourceDoc, _, _ := source.Entities.FindByID(ctx, "c1")
	targetDoc, _, _ := target.Entities.FindByID(ctx, "c1")
	if entities.Revision(sourceDoc) != entities.Revision(targetDoc) {
		t.Fatal("replicas must converge after resolving with the source copy")
	}
	if targetDoc["name"] != "source wins" {
		t.Fatalf("target kept %q, want the source copy", targetDoc["name"])
	}
}

func TestResolveUsingTargetRestoresSource(t *testing.T) {
	ctx := context.Background()
	source := memory.NewReplica("Customer")
	target := memory.NewReplica("Customer")

	seedEntity(t, source, entities.Document{"id": "c1", "name": "source wins"})
	seedEntity(t, target, entities.Document{"id": "c1", "name": "target wins"})

	result, err := ReplicateUseCase{}.Execute(ctx, source, target, CheckpointPair{})
	if err != nil {
		t.Fatalf("replicate: %v", err)
	}
	if len(result.Conflicts) != 1 {
		t.Fatalf("expected one conflict, got %d", len(result.Conflicts))
	}
	if err := result.Conflicts[0].ResolveUsingTarget(ctx); err != nil {
		t.Fatalf("resolve using target: %v", err)
	}
	sourceDoc, _, _ := source.Entities.FindByID(ctx, "c1")
	if sourceDoc["name"] != "target wins" {
		t.Fatalf("source kept %q, want the target copy", sourceDoc["name"])
	}
}

func TestSwapPartiesFlipsPerspective(t *testing.T) {
	source := memory.NewReplica("Customer")
	target := memory.NewReplica("Customer")
	conflict := Conflict{ModelID: "c1", Source: source, Target: target}
	swapped := conflict.SwapParties()
	if swapped.Source.Changes != target.Changes || swapped.Target.Changes != source.Changes {
		t.Fatal("SwapParties must exchange source and target")
	}
	if swapped.ModelID != "c1" {
		t.Fatal("SwapParties must keep the model id")
	}
}

func TestBulkUpdateAggregatesConflictsAndAppliesTheRest(t *testing.T) {
	ctx := context.Background()
	target := memory.NewReplica("Customer")

	good := entities.Document{"id": "fresh", "name": "new"}
	updates := []Update{
		{
			Kind:   entities.ChangeCreate,
			Change: entities.Change{ID: entities.ChangeID("Customer", "fresh"), ModelName: "Customer", ModelID: "fresh", Rev: entities.Revision(good)},
			Data:   good,
		},
		{
			Kind:   entities.ChangeUpdate,
			Change: entities.Change{ID: entities.ChangeID("Customer", "ghost"), ModelName: "Customer", ModelID: "ghost", Rev: "r2", Prev: "r1"},
			Data:   entities.Document{"name": "stale"},
		},
	}

	err := BulkUpdateUseCase{}.Execute(ctx, target, updates)
	conflictErr, ok := domainerrors.AsConflictError(err)
	if !ok {
		t.Fatalf("expected a conflict error, got %v", err)
	}
	if conflictErr.StatusCode != 409 {
		t.Fatalf("status = %d, want 409", conflictErr.StatusCode)
	}
	if len(conflictErr.Conflicts) != 1 || conflictErr.Conflicts[0].ModelID != "ghost" {
		t.Fatalf("unexpected conflicts: %+v", conflictErr.Conflicts)
	}
	if _, found, _ := target.Entities.FindByID(ctx, "fresh"); !found {
		t.Fatal("non-conflicting records of the batch must still apply")
	}
}

func TestReplicateChunksLargeChangeSets(t *testing.T) {
	ctx := context.Background()
	source := memory.NewReplica("Customer")
	target := memory.NewReplica("Customer")

	for i := 0; i < 10; i++ {
		seedEntity(t, source, entities.Document{"id": fmt.Sprintf("c%02d", i), "n": i})
	}

	result, err := ReplicateUseCase{ChunkSize: 3}.Execute(ctx, source, target, CheckpointPair{})
	if err != nil {
		t.Fatalf("replicate: %v", err)
	}
	if len(result.Conflicts) != 0 {
		t.Fatalf("expected no conflicts, got %d", len(result.Conflicts))
	}
	count, err := target.Entities.Count(ctx, nil)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 10 {
		t.Fatalf("target holds %d entities, want 10", count)
	}
}
