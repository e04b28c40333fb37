package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	accesscontrol "syncgate/contexts/access-control/acl-service"
	aclmemory "syncgate/contexts/access-control/acl-service/adapters/memory"
	aclpostgres "syncgate/contexts/access-control/acl-service/adapters/postgres"
	aclqueries "syncgate/contexts/access-control/acl-service/application/queries"
	aclentities "syncgate/contexts/access-control/acl-service/domain/entities"
	aclports "syncgate/contexts/access-control/acl-service/ports"
	replication "syncgate/contexts/data-sync/replication-service"
	eventsadapter "syncgate/contexts/data-sync/replication-service/adapters/events"
	replmemory "syncgate/contexts/data-sync/replication-service/adapters/memory"
	replpostgres "syncgate/contexts/data-sync/replication-service/adapters/postgres"
	replsqlite "syncgate/contexts/data-sync/replication-service/adapters/sqlite"
	"syncgate/contexts/data-sync/replication-service/application/commands"
	"syncgate/contexts/data-sync/replication-service/application/workers"
	replports "syncgate/contexts/data-sync/replication-service/ports"
	"syncgate/internal/platform/config"
	"syncgate/internal/platform/db"
	"syncgate/internal/platform/messaging"
	"syncgate/internal/shared/events"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

// SyncApp runs one replication pass from the local sqlite replicas into
// the remote postgres replicas.
type SyncApp struct {
	replication replication.Module
	access      accesscontrol.Module
	pairs       []replicaPair
	postgres    *db.Postgres
	sqlite      *sql.DB
	logger      *slog.Logger
}

// WorkerApp runs the periodic maintenance loops: the rectify sweep and
// the event relay.
type WorkerApp struct {
	sweep        workers.RectifySweep
	bus          *messaging.Kafka
	relayEvents  bool
	sweepEnabled bool
	pollInterval time.Duration
	postgres     *db.Postgres
	sqlite       *sql.DB
	logger       *slog.Logger
}

type replicaPair struct {
	model  string
	source replports.Replica
	target replports.Replica
}

func BuildSync() (*SyncApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "sync")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	local, err := db.OpenSQLite(cfg.SQLitePath)
	if err != nil {
		_ = pg.Close()
		return nil, err
	}

	bus, err := messaging.NewKafka(cfg.BusBrokers, logger)
	if err != nil {
		_ = pg.Close()
		_ = local.Close()
		return nil, err
	}

	pairs := make([]replicaPair, 0, len(cfg.TrackedModels))
	for _, model := range cfg.TrackedModels {
		source, err := replsqlite.NewReplica(local, model, logger)
		if err != nil {
			_ = pg.Close()
			_ = local.Close()
			return nil, err
		}
		pairs = append(pairs, replicaPair{
			model:  model,
			source: source,
			target: replpostgres.NewReplica(pg.DB, model, logger),
		})
	}

	replicationModule := replication.NewModule(replication.Dependencies{
		Clock:     replmemory.SystemClock{},
		IDs:       replmemory.UUIDGenerator{},
		Publisher: eventsadapter.NewPublisher(bus, logger),
		ChunkSize: cfg.ReplicationChunkSize,
		Attempts:  cfg.ReplicationAttempts,
		Logger:    logger,
	})

	aclRepo := aclpostgres.NewRepository(pg.DB, logger)
	aclStore := aclmemory.NewStore()
	for _, model := range cfg.TrackedModels {
		aclStore.DefineModel(model, aclports.ModelConfig{})
	}
	accessModule := accesscontrol.NewModule(accesscontrol.Dependencies{
		Rules:  aclRepo,
		Models: aclStore,
		Logger: logger,
	})

	return &SyncApp{
		replication: replicationModule,
		access:      accessModule,
		pairs:       pairs,
		postgres:    pg,
		sqlite:      local,
		logger:      logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	local, err := db.OpenSQLite(cfg.SQLitePath)
	if err != nil {
		_ = pg.Close()
		return nil, err
	}
	bus, err := messaging.NewKafka(cfg.BusBrokers, logger)
	if err != nil {
		_ = pg.Close()
		_ = local.Close()
		return nil, err
	}

	replicas := make([]replports.Replica, 0, 2*len(cfg.TrackedModels))
	for _, model := range cfg.TrackedModels {
		localReplica, err := replsqlite.NewReplica(local, model, logger)
		if err != nil {
			_ = pg.Close()
			_ = local.Close()
			return nil, err
		}
		replicas = append(replicas, localReplica, replpostgres.NewReplica(pg.DB, model, logger))
	}

	return &WorkerApp{
		sweep:        workers.RectifySweep{Replicas: replicas, Logger: logger},
		bus:          bus,
		relayEvents:  cfg.EnableEventRelay,
		sweepEnabled: cfg.EnableRectifySweep,
		pollInterval: time.Duration(cfg.SweepIntervalSeconds) * time.Second,
		postgres:     pg,
		sqlite:       local,
		logger:       logger,
	}, nil
}

// Run executes one replication pass per tracked model and reports the
// outcome through the logger. Unresolved conflicts are left in place for
// an operator (or a resolution policy) to settle.
func (a *SyncApp) Run(ctx context.Context) error {
	for _, pair := range a.pairs {
		// Replication against the remote is itself an access-controlled
		// operation; stored DENY rules can fence off a model.
		decision, err := a.access.CheckPermission.Execute(ctx, aclqueries.CheckPermissionQuery{
			PrincipalType: aclentities.PrincipalRole,
			PrincipalID:   aclentities.RoleEveryone,
			Model:         pair.model,
			Property:      "replicate",
			AccessType:    aclentities.AccessReplicate,
		})
		if err != nil {
			return err
		}
		if !decision.IsAllowed() {
			a.logger.Warn("replication denied by acl",
				"event", "bootstrap_sync_denied",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"model", pair.model,
			)
			continue
		}

		result, err := a.replication.Replicate.Execute(ctx, pair.source, pair.target, commands.CheckpointPair{})
		if err != nil {
			return err
		}
		a.logger.Info("replication pass finished",
			"event", "bootstrap_sync_pass",
			"module", "internal/app/bootstrap",
			"layer", "platform",
			"model", pair.model,
			"applied", result.Applied,
			"attempts", result.Attempts,
			"conflicts", len(result.Conflicts),
		)
	}
	return nil
}

func (a *SyncApp) Close() error {
	var firstErr error
	if a.postgres != nil {
		firstErr = a.postgres.Close()
	}
	if a.sqlite != nil {
		if err := a.sqlite.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (w *WorkerApp) Run(ctx context.Context) error {
	if w.relayEvents {
		err := w.bus.Subscribe(ctx, eventsadapter.TopicReplication, "syncgate-worker-cg", func(_ context.Context, envelope events.Envelope) error {
			w.logger.Info("replication event observed",
				"event", "replication_event_relayed",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"event_type", envelope.EventType,
				"entity_type", envelope.EntityType,
			)
			return nil
		})
		if err != nil {
			return err
		}
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	for {
		if w.sweepEnabled {
			w.sweep.RunOnce(ctx)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	var firstErr error
	if w.postgres != nil {
		firstErr = w.postgres.Close()
	}
	if w.sqlite != nil {
		if err := w.sqlite.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
