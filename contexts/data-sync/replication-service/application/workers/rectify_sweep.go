package workers

import (
	"context"
	"log/slog"

	"syncgate/contexts/data-sync/replication-service/application"
	"syncgate/contexts/data-sync/replication-service/application/commands"
	"syncgate/contexts/data-sync/replication-service/ports"
)

// RectifySweep periodically re-derives every replica's change log from
// its entity state, healing records that missed a rectification (crash
// between entity write and change write, manual data surgery).
type RectifySweep struct {
	Replicas []ports.Replica
	Logger   *slog.Logger
}

// RunOnce sweeps every replica. A failing replica is logged and skipped
// so one broken store cannot starve the rest.
func (w RectifySweep) RunOnce(ctx context.Context) {
	logger := application.ResolveLogger(w.Logger)
	for _, replica := range w.Replicas {
		if err := ctx.Err(); err != nil {
			return
		}
		tracker := commands.NewTracker(replica, logger)
		if err := tracker.RectifyAll(ctx); err != nil {
			logger.Error("rectify sweep failed",
				slog.String("event", "rectify_sweep_failed"),
				slog.String("module", "replication"),
				slog.String("model", replica.ModelName),
				slog.String("error", err.Error()),
			)
		}
	}
}
