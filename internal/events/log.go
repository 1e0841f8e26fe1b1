package events

import (
	"context"

	"go.uber.org/zap"
)

// LogPublisher writes events to the application log. Used when no broker is
// configured.
type LogPublisher struct {
	log *zap.Logger
}

func NewLogPublisher(log *zap.Logger) *LogPublisher {
	return &LogPublisher{log: log.Named("events")}
}

func (p *LogPublisher) Publish(_ context.Context, e Event) error {
	p.log.Info("domain event",
		zap.String("event_id", e.ID.String()),
		zap.String("type", string(e.Type)),
		zap.String("key", e.Key),
		zap.Any("payload", e.Payload),
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
