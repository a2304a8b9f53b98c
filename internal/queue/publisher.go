package queue

import (
    "context"
    "fmt"

    "github.com/sirupsen/logrus"

    "github.com/iliyamo/parking-slot-reservation/internal/config"
)

// Publisher sends booking events to a broker.
type Publisher interface {
    Publish(ctx context.Context, ev BookingEvent) error
    Close() error
}

// NopPublisher drops every event.  It is used when EVENT_BROKER=none.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, BookingEvent) error { return nil }
func (NopPublisher) Close() error                                 { return nil }

// NewPublisher returns the publisher selected by cfg.Broker.
func NewPublisher(cfg config.EventsConfig, log logrus.FieldLogger) (Publisher, error) {
    switch cfg.Broker {
    case "", "none":
        return NopPublisher{}, nil
    case "rabbitmq", "amqp":
        return NewAMQPPublisher(cfg.AMQPURL, cfg.Exchange, log), nil
    case "kafka":
        return NewKafkaPublisher(cfg.KafkaBrokers, cfg.Topic, log), nil
    }
    return nil, fmt.Errorf("unknown event broker %q", cfg.Broker)
}

// StartConsumer runs the audit consumer for the configured broker until ctx
// is cancelled.  It returns immediately when no broker is configured.
func StartConsumer(ctx context.Context, cfg config.EventsConfig, log logrus.FieldLogger) error {
    audit := NewAuditLog(cfg.AuditLogPath)
    switch cfg.Broker {
    case "rabbitmq", "amqp":
        return StartAMQPAuditConsumer(ctx, cfg.AMQPURL, cfg.Exchange, cfg.AuditQueue, audit, log)
    case "kafka":
        c := NewKafkaAuditConsumer(cfg.KafkaBrokers, cfg.ConsumerGroup, cfg.Topic, audit, log)
        defer c.Close()
        return c.Run(ctx)
    }
    return nil
}
