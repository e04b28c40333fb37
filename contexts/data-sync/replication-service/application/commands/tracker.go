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

// Tracker maintains the change log of one replica. Rectify is the single
// write path for change records: it re-derives a record from the current
// entity state, so running it any number of times settles on the same
// record.
type Tracker struct {
	Replica ports.Replica
	Logger  *slog.Logger
}

func NewTracker(replica ports.Replica, logger *slog.Logger) Tracker {
	return Tracker{Replica: replica, Logger: application.ResolveLogger(logger)}
}

// Rectify synchronizes the change record of one entity with reality. The
// prev revision rotates only when the checkpoint sequence has advanced
// since the record was last touched, so repeated mutations within one
// checkpoint window collapse into a single logical change.
func (t Tracker) Rectify(ctx context.Context, modelID string) (entities.Change, error) {
	if modelID == "" {
		return entities.Change{}, domainerrors.ErrMissingModelID
	}
	change, found, err := t.Replica.Changes.FindByModelID(ctx, modelID)
	if err != nil {
		return entities.Change{}, fmt.Errorf("find change for %s/%s: %w", t.Replica.ModelName, modelID, err)
	}
	if !found {
		change = entities.Change{
			ID:        entities.ChangeID(t.Replica.ModelName, modelID),
			ModelName: t.Replica.ModelName,
			ModelID:   modelID,
		}
	}

	doc, exists, err := t.Replica.Entities.FindByID(ctx, modelID)
	if err != nil {
		return entities.Change{}, fmt.Errorf("load entity %s/%s: %w", t.Replica.ModelName, modelID, err)
	}
	checkpoint, err := t.Replica.Checkpoints.Current(ctx)
	if err != nil {
		return entities.Change{}, fmt.Errorf("read checkpoint: %w", err)
	}
	crossed := checkpoint > change.Checkpoint

	if exists {
		rev := entities.Revision(doc)
		if rev == change.Rev {
			// Entity state already reflected; nothing to write.
			return change, nil
		}
		if change.Rev != "" && crossed {
			change.Prev = change.Rev
		}
		change.Rev = rev
	} else {
		if !found {
			// Never tracked and already gone: net nothing happened.
			return entities.Change{}, nil
		}
		if crossed {
			if change.Rev != "" {
				change.Prev = change.Rev
			} else if change.Prev == "" {
				change.Prev = entities.RevUnknown
			}
		}
		change.Rev = ""
		if change.Prev == "" || change.Prev == entities.RevUnknown {
			// Created and deleted inside one window, or the ancestry is
			// unrecoverable. Either way the record carries no usable
			// information, so drop it.
			if err := t.Replica.Changes.Delete(ctx, change.ID); err != nil {
				return entities.Change{}, fmt.Errorf("delete change %s: %w", change.ID, err)
			}
			t.Logger.Debug("change record dropped",
				slog.String("event", "change_dropped"),
				slog.String("module", "replication"),
				slog.String("model", t.Replica.ModelName),
				slog.String("model_id", modelID),
			)
			return entities.Change{}, nil
		}
	}

	change.Checkpoint = checkpoint
	saved, err := t.Replica.Changes.Save(ctx, change)
	if err != nil {
		return entities.Change{}, fmt.Errorf("save change %s: %w", change.ID, err)
	}
	return saved, nil
}

// RectifyAll rectifies every entity that currently exists plus every
// entity that still has a change record, healing records that drifted
// from reality.
func (t Tracker) RectifyAll(ctx context.Context) error {
	ids := make(map[string]bool)

	docs, err := t.Replica.Entities.Find(ctx, ports.Filter{Fields: []string{"id"}})
	if err != nil {
		return fmt.Errorf("list entities for %s: %w", t.Replica.ModelName, err)
	}
	for _, doc := range docs {
		if id := doc.ID(); id != "" {
			ids[id] = true
		}
	}
	changes, err := t.Replica.Changes.All(ctx)
	if err != nil {
		return fmt.Errorf("list changes for %s: %w", t.Replica.ModelName, err)
	}
	for _, change := range changes {
		ids[change.ModelID] = true
	}

	for id := range ids {
		if _, err := t.Rectify(ctx, id); err != nil {
			return err
		}
	}
	t.Logger.Info("change log rectified",
		slog.String("event", "rectify_all"),
		slog.String("module", "replication"),
		slog.String("model", t.Replica.ModelName),
		slog.Int("entities", len(ids)),
	)
	return nil
}

// Checkpoint seals the current change window and opens the next one.
func (t Tracker) Checkpoint(ctx context.Context) (int64, error) {
	seq, err := t.Replica.Checkpoints.Bump(ctx)
	if err != nil {
		return 0, fmt.Errorf("bump checkpoint for %s: %w", t.Replica.ModelName, err)
	}
	return seq, nil
}

// CurrentCheckpoint reads the open checkpoint sequence.
func (t Tracker) CurrentCheckpoint(ctx context.Context) (int64, error) {
	return t.Replica.Checkpoints.Current(ctx)
}
