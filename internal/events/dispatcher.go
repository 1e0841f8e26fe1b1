package events

import (
	"context"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/pharmacare/config"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/pkg/metrics"
	"go.uber.org/zap"
)

// NewPublisher builds the publisher selected by cfg.Broker. Broker-backed
// publishers are wrapped in a circuit breaker.
func NewPublisher(cfg config.EventsConfig, log *zap.Logger) (Publisher, error) {
	switch cfg.Broker {
	case "kafka":
		p := NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.PublishTimeout)
		return NewBreakerPublisher(p, "kafka", cfg.BreakerFailures, cfg.BreakerTimeout, log), nil
	case "rabbitmq":
		p, err := NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange)
		if err != nil {
			return nil, err
		}
		return NewBreakerPublisher(p, "rabbitmq", cfg.BreakerFailures, cfg.BreakerTimeout, log), nil
	case "log", "":
		return NewLogPublisher(log), nil
	default:
		return nil, fmt.Errorf("unknown events broker %q", cfg.Broker)
	}
}

// Dispatcher publishes events on behalf of services, detached from the
// request's cancellation and bounded by its own timeout.
type Dispatcher struct {
	pub     Publisher
	timeout time.Duration
	metrics *metrics.Collector
	log     *zap.Logger
}

func NewDispatcher(pub Publisher, timeout time.Duration, m *metrics.Collector, log *zap.Logger) *Dispatcher {
	return &Dispatcher{pub: pub, timeout: timeout, metrics: m, log: log}
}

func (d *Dispatcher) Dispatch(ctx context.Context, e Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	if err := d.pub.Publish(ctx, e); err != nil {
		d.metrics.EventPublishFailure.WithLabelValues(string(e.Type)).Inc()
		d.log.Warn("failed to publish event",
			zap.String("event_id", e.ID.String()),
			zap.String("type", string(e.Type)),
			zap.Error(err),
		)
		return
	}
	d.metrics.EventsPublished.WithLabelValues(string(e.Type)).Inc()
}

func (d *Dispatcher) Close() error {
	return d.pub.Close()
}
