package services

import (
	"testing"

	"syncgate/contexts/data-sync/replication-service/domain/entities"
)

func change(modelID, rev, prev string) entities.Change {
	return entities.Change{
		ID:        entities.ChangeID("Customer", modelID),
		ModelName: "Customer",
		ModelID:   modelID,
		Rev:       rev,
		Prev:      prev,
	}
}

func TestDiffClassifiesEveryChangeExactlyOnce(t *testing.T) {
	target := []entities.Change{
		change("only-target", "t1", ""),
		change("agrees", "r1", ""),
		change("fights", "t2", "t1"),
	}
	source := []entities.Change{
		change("agrees", "r1", ""),
		change("fights", "s2", "s1"),
		change("only-source", "s1", ""),
	}

	result := Diff(target, source)

	if len(result.Deltas) != 2 {
		t.Fatalf("expected 2 deltas, got %d", len(result.Deltas))
	}
	byID := make(map[string]Delta)
	for _, delta := range result.Deltas {
		byID[delta.Change.ModelID] = delta
	}
	if byID["only-target"].Origin != OriginTarget {
		t.Fatal("target-only change must surface as a target-origin delta")
	}
	if byID["only-source"].Origin != OriginSource {
		t.Fatal("source-only change must surface as a source-origin delta")
	}

	if len(result.Conflicts) != 1 || result.Conflicts[0].ModelID != "fights" {
		t.Fatalf("expected one conflict on %q, got %+v", "fights", result.Conflicts)
	}
	if result.Conflicts[0].Source.Rev != "s2" || result.Conflicts[0].Target.Rev != "t2" {
		t.Fatal("conflict pair must carry both competing change records")
	}

	if len(result.Reconciled) != 1 || result.Reconciled[0] != "agrees" {
		t.Fatalf("expected %q reconciled, got %v", "agrees", result.Reconciled)
	}
}

func TestDiffMixedCreateUpdatePairReconciles(t *testing.T) {
	target := []entities.Change{change("x", "t1", "")}
	source := []entities.Change{change("x", "s2", "s1")}

	result := Diff(target, source)

	if len(result.Conflicts) != 0 {
		t.Fatalf("create/update pair must not conflict, got %+v", result.Conflicts)
	}
	if len(result.Deltas) != 0 {
		t.Fatalf("reconciled pair must not produce deltas, got %+v", result.Deltas)
	}
}

func TestDiffEmptySides(t *testing.T) {
	if got := Diff(nil, nil); len(got.Deltas) != 0 || len(got.Conflicts) != 0 {
		t.Fatal("empty inputs must produce an empty result")
	}

	source := []entities.Change{change("a", "r1", "")}
	result := Diff(nil, source)
	if len(result.Deltas) != 1 || result.Deltas[0].Origin != OriginSource {
		t.Fatalf("expected a single source delta, got %+v", result.Deltas)
	}
}
