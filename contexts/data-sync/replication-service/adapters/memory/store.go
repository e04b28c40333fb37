package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"syncgate/contexts/data-sync/replication-service/domain/entities"
	"syncgate/contexts/data-sync/replication-service/ports"
)

// NewReplica builds a fully in-memory replica for one tracked model. It
// is intended for tests and local development wiring.
func NewReplica(modelName string) ports.Replica {
	return ports.Replica{
		ModelName:   modelName,
		Entities:    NewCollection(),
		Changes:     NewChangeLog(),
		Checkpoints: NewCheckpointSeq(),
	}
}

// Clock and IDGenerator for in-memory wiring.

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

// ChangeLog is an in-memory change store keyed by model id.
type ChangeLog struct {
	mu      sync.RWMutex
	changes map[string]entities.Change
}

func NewChangeLog() *ChangeLog {
	return &ChangeLog{changes: make(map[string]entities.Change)}
}

func (l *ChangeLog) FindByModelID(_ context.Context, modelID string) (entities.Change, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	change, ok := l.changes[modelID]
	return change, ok, nil
}

func (l *ChangeLog) Since(_ context.Context, checkpoint int64, skip, limit int) ([]entities.Change, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []entities.Change
	for _, change := range l.changes {
		if checkpoint > 0 && change.Checkpoint < checkpoint {
			continue
		}
		out = append(out, change)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModelID < out[j].ModelID })
	if skip > 0 {
		if skip >= len(out) {
			out = nil
		} else {
			out = out[skip:]
		}
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (l *ChangeLog) Save(_ context.Context, change entities.Change) (entities.Change, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.changes[change.ModelID] = change
	return change, nil
}

func (l *ChangeLog) Delete(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for modelID, change := range l.changes {
		if change.ID == id {
			delete(l.changes, modelID)
			return nil
		}
	}
	return nil
}

func (l *ChangeLog) All(_ context.Context) ([]entities.Change, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]entities.Change, 0, len(l.changes))
	for _, change := range l.changes {
		out = append(out, change)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModelID < out[j].ModelID })
	return out, nil
}

// CheckpointSeq is an in-memory checkpoint sequence starting at 1.
type CheckpointSeq struct {
	mu  sync.Mutex
	seq int64
}

func NewCheckpointSeq() *CheckpointSeq {
	return &CheckpointSeq{seq: 1}
}

func (s *CheckpointSeq) Current(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq, nil
}

func (s *CheckpointSeq) Bump(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq, nil
}

// Collection is an in-memory entity collection implementing the
// persistence capability set.
type Collection struct {
	mu   sync.RWMutex
	docs map[string]entities.Document
}

func NewCollection() *Collection {
	return &Collection{docs: make(map[string]entities.Document)}
}

func (c *Collection) Create(_ context.Context, doc entities.Document) (entities.Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stored := cloneDoc(doc)
	id := stored.ID()
	if id == "" {
		id = uuid.NewString()
		stored["id"] = id
	}
	c.docs[id] = stored
	return cloneDoc(stored), nil
}

func (c *Collection) FindByID(_ context.Context, id string) (entities.Document, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	doc, ok := c.docs[id]
	if !ok {
		return nil, false, nil
	}
	return cloneDoc(doc), true, nil
}

func (c *Collection) Find(_ context.Context, filter ports.Filter) ([]entities.Document, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []entities.Document
	for _, doc := range c.docs {
		if matchesWhere(doc, filter.Where) {
			out = append(out, cloneDoc(doc))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })

	if filter.Skip > 0 {
		if filter.Skip >= len(out) {
			out = nil
		} else {
			out = out[filter.Skip:]
		}
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	if len(filter.Fields) > 0 {
		for i, doc := range out {
			out[i] = projectFields(doc, filter.Fields)
		}
	}
	return out, nil
}

func (c *Collection) UpdateAttributes(_ context.Context, id string, data entities.Document) (entities.Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	doc, ok := c.docs[id]
	if !ok {
		doc = entities.Document{"id": id}
		c.docs[id] = doc
	}
	for k, v := range data {
		if k == "id" {
			continue
		}
		doc[k] = v
	}
	return cloneDoc(doc), nil
}

func (c *Collection) DestroyByID(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.docs, id)
	return nil
}

func (c *Collection) Count(_ context.Context, where ports.Where) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var count int64
	for _, doc := range c.docs {
		if matchesWhere(doc, where) {
			count++
		}
	}
	return count, nil
}

func matchesWhere(doc entities.Document, where ports.Where) bool {
	for field, cond := range where {
		value := doc[field]
		if op, ok := cond.(ports.Op); ok {
			if !matchesOp(value, op) {
				return false
			}
			continue
		}
		if fmt.Sprint(value) != fmt.Sprint(cond) {
			return false
		}
	}
	return true
}

func matchesOp(value any, op ports.Op) bool {
	switch op.Name {
	case "inq":
		values, ok := op.Value.([]any)
		if !ok {
			return false
		}
		for _, v := range values {
			if fmt.Sprint(value) == fmt.Sprint(v) {
				return true
			}
		}
		return false
	case "gte":
		return strings.Compare(fmt.Sprint(value), fmt.Sprint(op.Value)) >= 0
	default:
		return false
	}
}

func projectFields(doc entities.Document, fields []string) entities.Document {
	out := make(entities.Document, len(fields))
	for _, field := range fields {
		if value, ok := doc[field]; ok {
			out[field] = value
		}
	}
	return out
}

func cloneDoc(doc entities.Document) entities.Document {
	out := make(entities.Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
