package commands

import (
	"context"
	"log/slog"
	"time"

	"syncgate/contexts/data-sync/replication-service/application"
	"syncgate/contexts/data-sync/replication-service/application/queries"
	"syncgate/contexts/data-sync/replication-service/domain/entities"
	domainerrors "syncgate/contexts/data-sync/replication-service/domain/errors"
	"syncgate/contexts/data-sync/replication-service/domain/services"
	"syncgate/contexts/data-sync/replication-service/ports"
	"syncgate/internal/shared/events"
)

const defaultAttempts = 3

// CheckpointPair is a replication cursor: one checkpoint per side.
type CheckpointPair struct {
	Source int64
	Target int64
}

// ReplicationResult reports one replication run: the cursor to resume
// from, unresolved conflicts, and how much work the final attempt did.
type ReplicationResult struct {
	Checkpoints CheckpointPair
	Conflicts   []Conflict
	Applied     int
	Attempts    int
}

// ReplicateUseCase pushes the source replica's changes into the target.
// Each attempt seals fresh checkpoints on both sides, diffs the change
// windows, materializes the source deltas, and bulk-applies them. Clean
// attempts repeat until no work remains, so writes racing the sync get
// carried over instead of lost.
type ReplicateUseCase struct {
	Clock     ports.Clock
	IDs       ports.IDGenerator
	Publisher ports.EventPublisher
	ChunkSize int
	Attempts  int
	Logger    *slog.Logger
}

func (u ReplicateUseCase) Execute(ctx context.Context, source, target ports.Replica, since CheckpointPair) (ReplicationResult, error) {
	logger := application.ResolveLogger(u.Logger)
	changes := queries.ChangesUseCase{Logger: logger}
	diff := queries.DiffUseCase{Logger: logger}
	bulk := BulkUpdateUseCase{Logger: logger}
	attempts := u.Attempts
	if attempts <= 0 {
		attempts = defaultAttempts
	}

	var result ReplicationResult
	for attempt := 1; ; attempt++ {
		sourceSeq, err := NewTracker(source, logger).Checkpoint(ctx)
		if err != nil {
			return result, err
		}
		targetSeq, err := NewTracker(target, logger).Checkpoint(ctx)
		if err != nil {
			return result, err
		}

		sourceChanges, err := changes.Since(ctx, source, since.Source, u.ChunkSize)
		if err != nil {
			return result, err
		}

		acc := newDiffAccumulator()
		for start := 0; start < len(sourceChanges) || start == 0; {
			end := len(sourceChanges)
			if u.ChunkSize > 0 && start+u.ChunkSize < end {
				end = start + u.ChunkSize
			}
			chunkResult, err := diff.Execute(ctx, target, since.Target, sourceChanges[start:end])
			if err != nil {
				return result, err
			}
			acc.absorb(chunkResult)
			if end >= len(sourceChanges) {
				break
			}
			start = end
		}
		diffResult := acc.result()

		updates, err := CreateUpdates(ctx, source, diffResult.Deltas, u.ChunkSize)
		if err != nil {
			return result, err
		}

		var rejected []domainerrors.UpdateConflict
		if len(updates) > 0 {
			if err := bulk.Execute(ctx, target, updates); err != nil {
				conflictErr, ok := domainerrors.AsConflictError(err)
				if !ok {
					return result, err
				}
				rejected = conflictErr.Conflicts
			}
		}

		result.Checkpoints = CheckpointPair{Source: sourceSeq, Target: targetSeq}
		result.Applied = len(updates) - len(rejected)
		result.Attempts = attempt
		result.Conflicts = collectConflicts(source, target, diffResult.Conflicts, rejected)

		logger.Info("replication attempt finished",
			slog.String("event", "replicate_attempt"),
			slog.String("module", "replication"),
			slog.String("model", source.ModelName),
			slog.Int("attempt", attempt),
			slog.Int("applied", result.Applied),
			slog.Int("conflicts", len(result.Conflicts)),
		)

		if len(result.Conflicts) > 0 || result.Applied == 0 || attempt >= attempts {
			u.publish(ctx, source, target, result)
			return result, nil
		}
		since = result.Checkpoints
	}
}

func (u ReplicateUseCase) publish(ctx context.Context, source, target ports.Replica, result ReplicationResult) {
	if u.Publisher == nil {
		return
	}
	eventID := ""
	if u.IDs != nil {
		if id, err := u.IDs.NewID(ctx); err == nil {
			eventID = id
		}
	}
	occurredAt := time.Now().UTC()
	if u.Clock != nil {
		occurredAt = u.Clock.Now().UTC()
	}
	envelope := events.Envelope{
		EventID:        eventID,
		EventType:      "replication.completed",
		SourceService:  "replication-service",
		OccurredAtUTC:  occurredAt,
		EntityType:     source.ModelName,
		PayloadVersion: 1,
		Payload: map[string]any{
			"targetModel":      target.ModelName,
			"applied":          result.Applied,
			"attempts":         result.Attempts,
			"conflicts":        len(result.Conflicts),
			"sourceCheckpoint": result.Checkpoints.Source,
			"targetCheckpoint": result.Checkpoints.Target,
		},
	}
	if err := u.Publisher.PublishReplicationEvent(ctx, envelope); err != nil {
		application.ResolveLogger(u.Logger).Error("publish replication event failed",
			slog.String("event", "publish_failed"),
			slog.String("module", "replication"),
			slog.String("error", err.Error()),
		)
	}
}

func collectConflicts(source, target ports.Replica, pairs []services.ConflictPair, rejected []domainerrors.UpdateConflict) []Conflict {
	seen := make(map[string]bool, len(pairs)+len(rejected))
	var conflicts []Conflict
	add := func(modelID string) {
		if seen[modelID] {
			return
		}
		seen[modelID] = true
		conflicts = append(conflicts, Conflict{ModelID: modelID, Source: source, Target: target})
	}
	for _, pair := range pairs {
		add(pair.ModelID)
	}
	for _, reject := range rejected {
		add(reject.ModelID)
	}
	return conflicts
}

// diffAccumulator merges per-chunk diff results into one coherent view.
// A target change looks "local only" to every chunk that lacks its
// counterpart, so target-origin deltas stay candidates until no chunk
// has claimed them.
type diffAccumulator struct {
	sourceDeltas []services.Delta
	conflicts    []services.ConflictPair
	targetOnly   map[string]entities.Change
	targetOrder  []string
	claimed      map[string]bool
}

func newDiffAccumulator() *diffAccumulator {
	return &diffAccumulator{
		targetOnly: make(map[string]entities.Change),
		claimed:    make(map[string]bool),
	}
}

func (a *diffAccumulator) absorb(result services.DiffResult) {
	for _, delta := range result.Deltas {
		if delta.Origin == services.OriginSource {
			a.sourceDeltas = append(a.sourceDeltas, delta)
			continue
		}
		id := delta.Change.ModelID
		if _, ok := a.targetOnly[id]; !ok {
			a.targetOnly[id] = delta.Change
			a.targetOrder = append(a.targetOrder, id)
		}
	}
	for _, pair := range result.Conflicts {
		a.conflicts = append(a.conflicts, pair)
		a.claimed[pair.ModelID] = true
	}
	for _, id := range result.Reconciled {
		a.claimed[id] = true
	}
}

func (a *diffAccumulator) result() services.DiffResult {
	merged := services.DiffResult{
		Deltas:    a.sourceDeltas,
		Conflicts: a.conflicts,
	}
	for _, id := range a.targetOrder {
		if a.claimed[id] {
			continue
		}
		merged.Deltas = append(merged.Deltas, services.Delta{Origin: services.OriginTarget, Change: a.targetOnly[id]})
	}
	return merged
}
