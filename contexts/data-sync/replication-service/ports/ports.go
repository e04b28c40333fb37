package ports

import (
	"context"
	"time"

	"syncgate/contexts/data-sync/replication-service/domain/entities"
	"syncgate/internal/shared/events"
)

// Clock abstracts current time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// IDGenerator abstracts UUID generation for event envelopes.
type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// Op is a non-equality comparison inside a where clause.
type Op struct {
	Name  string
	Value any
}

func In(values ...any) Op { return Op{Name: "inq", Value: values} }
func Gte(value any) Op    { return Op{Name: "gte", Value: value} }

// Where maps field names to either a plain value (equality) or an Op.
type Where map[string]any

// Filter is the query contract of the persistence collaborator.
type Filter struct {
	Where  Where
	Fields []string
	Order  string
	Skip   int
	Limit  int
}

// EntityStore is the capability set replication demands from one tracked
// entity collection.
type EntityStore interface {
	Create(ctx context.Context, doc entities.Document) (entities.Document, error)
	FindByID(ctx context.Context, id string) (entities.Document, bool, error)
	Find(ctx context.Context, filter Filter) ([]entities.Document, error)
	UpdateAttributes(ctx context.Context, id string, data entities.Document) (entities.Document, error)
	DestroyByID(ctx context.Context, id string) error
	Count(ctx context.Context, where Where) (int64, error)
}

// ChangeStore persists the change records of one tracked model.
type ChangeStore interface {
	FindByModelID(ctx context.Context, modelID string) (entities.Change, bool, error)
	// Since lists changes rectified at or after the given checkpoint,
	// ordered by model id. A non-positive checkpoint matches everything.
	Since(ctx context.Context, checkpoint int64, skip, limit int) ([]entities.Change, error)
	Save(ctx context.Context, change entities.Change) (entities.Change, error)
	Delete(ctx context.Context, id string) error
	All(ctx context.Context) ([]entities.Change, error)
}

// CheckpointStore holds the monotonically increasing checkpoint sequence
// of one replica.
type CheckpointStore interface {
	Current(ctx context.Context) (int64, error)
	Bump(ctx context.Context) (int64, error)
}

// Replica bundles everything replication needs to read and write one side
// of a sync: the tracked entity collection, its change log, and its
// checkpoint sequence.
type Replica struct {
	ModelName   string
	Entities    EntityStore
	Changes     ChangeStore
	Checkpoints CheckpointStore
}

// EventPublisher emits replication lifecycle events onto the bus.
type EventPublisher interface {
	PublishReplicationEvent(ctx context.Context, envelope events.Envelope) error
}
