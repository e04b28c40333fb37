package eventsadapter

import (
	"context"
	"log/slog"

	"syncgate/internal/platform/messaging"
	"syncgate/internal/shared/events"
)

// TopicReplication carries replication lifecycle events.
const TopicReplication = "syncgate.replication"

// Publisher emits replication envelopes onto the in-process bus.
type Publisher struct {
	bus    *messaging.Kafka
	topic  string
	logger *slog.Logger
}

func NewPublisher(bus *messaging.Kafka, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{bus: bus, topic: TopicReplication, logger: logger}
}

func (p *Publisher) PublishReplicationEvent(ctx context.Context, envelope events.Envelope) error {
	if err := p.bus.Publish(ctx, p.topic, envelope); err != nil {
		p.logger.Error("replication event publish failed",
			slog.String("event", "publish_failed"),
			slog.String("module", "data-sync/replication-service"),
			slog.String("layer", "adapter"),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}
