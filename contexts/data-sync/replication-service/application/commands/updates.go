package commands

import (
	"context"
	"fmt"

	"syncgate/contexts/data-sync/replication-service/domain/entities"
	"syncgate/contexts/data-sync/replication-service/domain/services"
	"syncgate/contexts/data-sync/replication-service/ports"
)

// Update is one materialized instruction for the target: the authoring
// change plus, for creates and updates, a snapshot of the source entity.
type Update struct {
	Kind   entities.ChangeKind
	Change entities.Change
	Data   entities.Document
}

// CreateUpdates turns source-origin deltas into applicable updates by
// loading the current source snapshots in chunks. Deltas whose entity
// vanished between diff and snapshot are skipped; a later replication
// round picks up the delete.
func CreateUpdates(ctx context.Context, source ports.Replica, deltas []services.Delta, chunkSize int) ([]Update, error) {
	var updates []Update
	var need []services.Delta
	for _, delta := range deltas {
		if delta.Origin != services.OriginSource {
			continue
		}
		switch delta.Change.Kind() {
		case entities.ChangeDelete:
			updates = append(updates, Update{Kind: entities.ChangeDelete, Change: delta.Change})
		case entities.ChangeCreate, entities.ChangeUpdate:
			need = append(need, delta)
		default:
			// Unknown changes carry no applicable state.
		}
	}

	snapshots := make(map[string]entities.Document, len(need))
	for start := 0; start < len(need); {
		end := len(need)
		if chunkSize > 0 && start+chunkSize < end {
			end = start + chunkSize
		}
		ids := make([]any, 0, end-start)
		for _, delta := range need[start:end] {
			ids = append(ids, delta.Change.ModelID)
		}
		docs, err := source.Entities.Find(ctx, ports.Filter{Where: ports.Where{"id": ports.In(ids...)}})
		if err != nil {
			return nil, fmt.Errorf("snapshot %s entities: %w", source.ModelName, err)
		}
		for _, doc := range docs {
			snapshots[doc.ID()] = doc
		}
		start = end
	}

	for _, delta := range need {
		doc, ok := snapshots[delta.Change.ModelID]
		if !ok {
			continue
		}
		updates = append(updates, Update{Kind: delta.Change.Kind(), Change: delta.Change, Data: doc})
	}
	return updates, nil
}
