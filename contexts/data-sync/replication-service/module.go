package replication

import (
	"log/slog"

	"syncgate/contexts/data-sync/replication-service/adapters/memory"
	"syncgate/contexts/data-sync/replication-service/application/commands"
	"syncgate/contexts/data-sync/replication-service/application/queries"
	"syncgate/contexts/data-sync/replication-service/application/workers"
	"syncgate/contexts/data-sync/replication-service/ports"
)

// Module is the replication-service composition root exposed to runtime
// wiring.
type Module struct {
	Replicate  commands.ReplicateUseCase
	BulkUpdate commands.BulkUpdateUseCase
	Changes    queries.ChangesUseCase
	Diff       queries.DiffUseCase
	Logger     *slog.Logger
}

// Dependencies captures all runtime ports/config required by NewModule.
type Dependencies struct {
	Clock     ports.Clock
	IDs       ports.IDGenerator
	Publisher ports.EventPublisher
	ChunkSize int
	Attempts  int
	Logger    *slog.Logger
}

// NewModule wires the replication use cases using explicit ports.
func NewModule(deps Dependencies) Module {
	var clock ports.Clock = deps.Clock
	if clock == nil {
		clock = memory.SystemClock{}
	}
	var ids ports.IDGenerator = deps.IDs
	if ids == nil {
		ids = memory.UUIDGenerator{}
	}

	return Module{
		Replicate: commands.ReplicateUseCase{
			Clock:     clock,
			IDs:       ids,
			Publisher: deps.Publisher,
			ChunkSize: deps.ChunkSize,
			Attempts:  deps.Attempts,
			Logger:    deps.Logger,
		},
		BulkUpdate: commands.BulkUpdateUseCase{Logger: deps.Logger},
		Changes:    queries.ChangesUseCase{Logger: deps.Logger},
		Diff:       queries.DiffUseCase{Logger: deps.Logger},
		Logger:     deps.Logger,
	}
}

// NewInMemoryModule builds a development/testing module with default
// clock and id wiring and no event publisher.
func NewInMemoryModule(logger *slog.Logger) Module {
	return NewModule(Dependencies{Logger: logger})
}

// Track returns a change tracker bound to one replica.
func (m Module) Track(replica ports.Replica) commands.Tracker {
	return commands.NewTracker(replica, m.Logger)
}

// Sweep builds a rectify sweep over the given replicas.
func (m Module) Sweep(replicas ...ports.Replica) workers.RectifySweep {
	return workers.RectifySweep{Replicas: replicas, Logger: m.Logger}
}
