package commands

import (
	"context"
	"fmt"
	"log/slog"

	"syncgate/contexts/data-sync/replication-service/application"
	"syncgate/contexts/data-sync/replication-service/domain/entities"
	domainerrors "syncgate/contexts/data-sync/replication-service/domain/errors"
	"syncgate/contexts/data-sync/replication-service/ports"
)

// BulkUpdateUseCase applies a batch of replicated updates to a target
// replica. Each update is guarded by an optimistic check of the declared
// prev revision against the target's actual state; mismatches are
// collected, never fatal, so one stale record cannot block the batch.
type BulkUpdateUseCase struct {
	Logger *slog.Logger
}

func (u BulkUpdateUseCase) Execute(ctx context.Context, target ports.Replica, updates []Update) error {
	logger := application.ResolveLogger(u.Logger)
	tracker := NewTracker(target, logger)
	var conflicts []domainerrors.UpdateConflict

	for _, update := range updates {
		conflicted, err := u.applyOne(ctx, target, update)
		if err != nil {
			return err
		}
		if conflicted {
			conflicts = append(conflicts, domainerrors.UpdateConflict{
				ModelID: update.Change.ModelID,
				Kind:    string(update.Kind),
			})
			// Reality won; make the target's change record admit it so the
			// next diff reports the conflict instead of a phantom match.
			if _, err := tracker.Rectify(ctx, update.Change.ModelID); err != nil {
				return err
			}
			continue
		}
		if _, err := tracker.Rectify(ctx, update.Change.ModelID); err != nil {
			return err
		}
	}

	if len(conflicts) > 0 {
		logger.Warn("bulk update partially rejected",
			slog.String("event", "bulk_update_conflict"),
			slog.String("module", "replication"),
			slog.String("model", target.ModelName),
			slog.Int("applied", len(updates)-len(conflicts)),
			slog.Int("conflicts", len(conflicts)),
		)
		return domainerrors.NewConflictError(target.ModelName, conflicts)
	}
	return nil
}

func (u BulkUpdateUseCase) applyOne(ctx context.Context, target ports.Replica, update Update) (bool, error) {
	id := update.Change.ModelID
	current, exists, err := target.Entities.FindByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("load target entity %s/%s: %w", target.ModelName, id, err)
	}
	currentRev := ""
	if exists {
		currentRev = entities.Revision(current)
	}

	switch update.Kind {
	case entities.ChangeCreate:
		if exists {
			// Identical concurrent creation needs no write and no alarm.
			return currentRev != update.Change.Rev, nil
		}
		data := withID(update.Data, id)
		if _, err := target.Entities.Create(ctx, data); err != nil {
			return false, fmt.Errorf("create %s/%s: %w", target.ModelName, id, err)
		}
	case entities.ChangeUpdate:
		if !exists || currentRev != update.Change.Prev {
			return true, nil
		}
		if _, err := target.Entities.UpdateAttributes(ctx, id, update.Data); err != nil {
			return false, fmt.Errorf("update %s/%s: %w", target.ModelName, id, err)
		}
	case entities.ChangeDelete:
		if !exists {
			return true, nil
		}
		if update.Change.Prev != "" && update.Change.Prev != entities.RevUnknown && currentRev != update.Change.Prev {
			return true, nil
		}
		if err := target.Entities.DestroyByID(ctx, id); err != nil {
			return false, fmt.Errorf("delete %s/%s: %w", target.ModelName, id, err)
		}
	default:
		return true, nil
	}
	return false, nil
}

func withID(data entities.Document, id string) entities.Document {
	out := make(entities.Document, len(data)+1)
	for k, v := range data {
		out[k] = v
	}
	out["id"] = id
	return out
}
