package services

import (
	"syncgate/contexts/data-sync/replication-service/domain/entities"
)

// DeltaOrigin names which replica authored the change carried by a delta.
type DeltaOrigin string

const (
	OriginSource DeltaOrigin = "source"
	OriginTarget DeltaOrigin = "target"
)

// Delta is one change that one side has and the other lacks. Only
// source-origin deltas are materialized into updates during replication;
// target-origin deltas inform the caller what the target did locally.
type Delta struct {
	Origin DeltaOrigin
	Change entities.Change
}

// ConflictPair holds the two competing change records for one entity.
type ConflictPair struct {
	ModelID string
	Source  entities.Change
	Target  entities.Change
}

// DiffResult classifies every change seen on either side. Reconciled lists
// the model IDs of matched pairs that agree and need no delta; the chunked
// replication path uses it to avoid re-reporting a consumed target change.
type DiffResult struct {
	Deltas     []Delta
	Conflicts  []ConflictPair
	Reconciled []string
}

// Diff compares the target's local changes against a batch of remote
// source changes. Every change lands in exactly one bucket:
//
//   - target change with no source counterpart: target-origin delta
//   - matched pair that conflicts: conflict
//   - matched pair that agrees: reconciled, no delta
//   - source change with no target counterpart: source-origin delta
func Diff(targetChanges, sourceChanges []entities.Change) DiffResult {
	bySource := make(map[string]entities.Change, len(sourceChanges))
	for _, sc := range sourceChanges {
		bySource[sc.ModelID] = sc
	}

	var result DiffResult
	consumed := make(map[string]bool, len(targetChanges))
	for _, tc := range targetChanges {
		sc, ok := bySource[tc.ModelID]
		if !ok {
			result.Deltas = append(result.Deltas, Delta{Origin: OriginTarget, Change: tc})
			continue
		}
		consumed[tc.ModelID] = true
		if sc.ConflictsWith(tc) {
			result.Conflicts = append(result.Conflicts, ConflictPair{ModelID: tc.ModelID, Source: sc, Target: tc})
			continue
		}
		result.Reconciled = append(result.Reconciled, tc.ModelID)
	}
	for _, sc := range sourceChanges {
		if consumed[sc.ModelID] {
			continue
		}
		result.Deltas = append(result.Deltas, Delta{Origin: OriginSource, Change: sc})
	}
	return result
}
