package commands

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"syncgate/contexts/data-sync/replication-service/application/queries"
	"syncgate/contexts/data-sync/replication-service/domain/entities"
	"syncgate/contexts/data-sync/replication-service/ports"
)

// Conflict is a live handle onto one unresolved divergence between two
// replicas. It holds no snapshot: every accessor re-reads the stores, so
// a handle stays valid across resolutions.
type Conflict struct {
	ModelID string
	Source  ports.Replica
	Target  ports.Replica
}

// Changes loads both sides' change records concurrently. A missing record
// comes back as a zero Change.
func (c Conflict) Changes(ctx context.Context) (source, target entities.Change, err error) {
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		change, _, err := c.Source.Changes.FindByModelID(ctx, c.ModelID)
		source = change
		return err
	})
	group.Go(func() error {
		change, _, err := c.Target.Changes.FindByModelID(ctx, c.ModelID)
		target = change
		return err
	})
	err = group.Wait()
	return source, target, err
}

// Models loads both sides' entity snapshots concurrently. A deleted
// entity comes back as a nil Document.
func (c Conflict) Models(ctx context.Context) (source, target entities.Document, err error) {
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		doc, found, err := c.Source.Entities.FindByID(ctx, c.ModelID)
		if found {
			source = doc
		}
		return err
	})
	group.Go(func() error {
		doc, found, err := c.Target.Entities.FindByID(ctx, c.ModelID)
		if found {
			target = doc
		}
		return err
	})
	err = group.Wait()
	return source, target, err
}

// Kinds derives both sides' mutation types.
func (c Conflict) Kinds(ctx context.Context) (source, target entities.ChangeKind, err error) {
	sourceChange, targetChange, err := c.Changes(ctx)
	if err != nil {
		return "", "", err
	}
	return sourceChange.Kind(), targetChange.Kind(), nil
}

// SwapParties views the same divergence from the other side.
func (c Conflict) SwapParties() Conflict {
	return Conflict{ModelID: c.ModelID, Source: c.Target, Target: c.Source}
}

// Resolve marks the conflict handled without moving any data: the source
// change is re-parented onto the target's current revision, so the next
// replication treats the source state as the successor.
func (c Conflict) Resolve(ctx context.Context) error {
	targetChange, _, err := c.Target.Changes.FindByModelID(ctx, c.ModelID)
	if err != nil {
		return err
	}
	prev := targetChange.Rev
	if prev == "" {
		if doc, found, err := c.Target.Entities.FindByID(ctx, c.ModelID); err != nil {
			return err
		} else if found {
			prev = entities.Revision(doc)
		}
	}
	_, err = queries.UpdateLastChange(ctx, c.Source, c.ModelID, queries.ChangePatch{Prev: &prev})
	if err != nil {
		return fmt.Errorf("resolve conflict for %s/%s: %w", c.Source.ModelName, c.ModelID, err)
	}
	return nil
}

// ResolveUsingSource forces the target to match the source: the source
// state is copied over (or the target entity deleted when the source is
// gone), the target's change log rectified, and the conflict resolved.
func (c Conflict) ResolveUsingSource(ctx context.Context) error {
	doc, found, err := c.Source.Entities.FindByID(ctx, c.ModelID)
	if err != nil {
		return err
	}
	if err := overwriteEntity(ctx, c.Target, c.ModelID, doc, found); err != nil {
		return err
	}
	if _, err := NewTracker(c.Target, nil).Rectify(ctx, c.ModelID); err != nil {
		return err
	}
	return c.Resolve(ctx)
}

// ResolveUsingTarget forces the source to match the target.
func (c Conflict) ResolveUsingTarget(ctx context.Context) error {
	doc, found, err := c.Target.Entities.FindByID(ctx, c.ModelID)
	if err != nil {
		return err
	}
	if err := overwriteEntity(ctx, c.Source, c.ModelID, doc, found); err != nil {
		return err
	}
	if _, err := NewTracker(c.Source, nil).Rectify(ctx, c.ModelID); err != nil {
		return err
	}
	return c.Resolve(ctx)
}

// ResolveManually settles both sides on caller-provided data. A nil
// document deletes the entity everywhere.
func (c Conflict) ResolveManually(ctx context.Context, data entities.Document) error {
	found := data != nil
	if err := overwriteEntity(ctx, c.Source, c.ModelID, data, found); err != nil {
		return err
	}
	if _, err := NewTracker(c.Source, nil).Rectify(ctx, c.ModelID); err != nil {
		return err
	}
	if err := overwriteEntity(ctx, c.Target, c.ModelID, data, found); err != nil {
		return err
	}
	if _, err := NewTracker(c.Target, nil).Rectify(ctx, c.ModelID); err != nil {
		return err
	}
	return c.Resolve(ctx)
}

// overwriteEntity upserts or deletes one entity unconditionally.
func overwriteEntity(ctx context.Context, replica ports.Replica, id string, data entities.Document, present bool) error {
	_, exists, err := replica.Entities.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !present {
		if !exists {
			return nil
		}
		return replica.Entities.DestroyByID(ctx, id)
	}
	data = withID(data, id)
	if exists {
		_, err = replica.Entities.UpdateAttributes(ctx, id, data)
		return err
	}
	_, err = replica.Entities.Create(ctx, data)
	return err
}
