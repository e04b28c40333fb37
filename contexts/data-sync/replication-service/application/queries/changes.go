package queries

import (
	"context"
	"fmt"
	"log/slog"

	"syncgate/contexts/data-sync/replication-service/application"
	"syncgate/contexts/data-sync/replication-service/domain/entities"
	domainerrors "syncgate/contexts/data-sync/replication-service/domain/errors"
	"syncgate/contexts/data-sync/replication-service/domain/services"
	"syncgate/contexts/data-sync/replication-service/ports"
)

// ChangesUseCase reads a replica's change log.
type ChangesUseCase struct {
	Logger *slog.Logger
}

// Since lists the changes rectified at or after the given checkpoint. A
// non-positive since returns the full log. Paging walks the log in chunks
// when chunkSize is positive, so arbitrarily large logs stream without a
// single unbounded read.
func (u ChangesUseCase) Since(ctx context.Context, replica ports.Replica, since int64, chunkSize int) ([]entities.Change, error) {
	if chunkSize <= 0 {
		return replica.Changes.Since(ctx, since, 0, 0)
	}
	var all []entities.Change
	for skip := 0; ; skip += chunkSize {
		page, err := replica.Changes.Since(ctx, since, skip, chunkSize)
		if err != nil {
			return nil, fmt.Errorf("list changes for %s since %d: %w", replica.ModelName, since, err)
		}
		all = append(all, page...)
		if len(page) < chunkSize {
			return all, nil
		}
	}
}

// DiffUseCase computes, on behalf of a target replica, what differs from
// a batch of remote changes.
type DiffUseCase struct {
	Logger *slog.Logger
}

func (u DiffUseCase) Execute(ctx context.Context, target ports.Replica, since int64, remote []entities.Change) (services.DiffResult, error) {
	local, err := target.Changes.Since(ctx, since, 0, 0)
	if err != nil {
		return services.DiffResult{}, fmt.Errorf("list local changes for %s: %w", target.ModelName, err)
	}
	result := services.Diff(local, remote)
	application.ResolveLogger(u.Logger).Debug("diff computed",
		slog.String("event", "diff"),
		slog.String("module", "replication"),
		slog.String("model", target.ModelName),
		slog.Int("deltas", len(result.Deltas)),
		slog.Int("conflicts", len(result.Conflicts)),
	)
	return result, nil
}

// FindLastChange returns the change record currently tracking an entity.
func FindLastChange(ctx context.Context, replica ports.Replica, modelID string) (entities.Change, bool, error) {
	if modelID == "" {
		return entities.Change{}, false, domainerrors.ErrMissingModelID
	}
	return replica.Changes.FindByModelID(ctx, modelID)
}

// ChangePatch carries the mutable fields of UpdateLastChange. Nil fields
// are left untouched.
type ChangePatch struct {
	Prev *string
	Rev  *string
}

// UpdateLastChange rewrites the tracked revision fields of an entity's
// change record. Conflict resolution uses it to re-parent one side's
// change onto the other's current revision.
func UpdateLastChange(ctx context.Context, replica ports.Replica, modelID string, patch ChangePatch) (entities.Change, error) {
	change, found, err := replica.Changes.FindByModelID(ctx, modelID)
	if err != nil {
		return entities.Change{}, err
	}
	if !found {
		return entities.Change{}, fmt.Errorf("%s/%s: %w", replica.ModelName, modelID, domainerrors.ErrChangeNotFound)
	}
	if patch.Prev != nil {
		change.Prev = *patch.Prev
	}
	if patch.Rev != nil {
		change.Rev = *patch.Rev
	}
	return replica.Changes.Save(ctx, change)
}
