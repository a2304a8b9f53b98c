package queue

import (
    "context"
    "encoding/json"
    "fmt"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"
)

// defaultDialTimeout bounds connection setup, which runs under the
// publisher mutex.
const defaultDialTimeout = 2 * time.Second

// AMQPPublisher publishes booking events to a durable topic exchange with
// the event type as routing key.  The connection is opened lazily and
// re-dialed after the broker drops it.
type AMQPPublisher struct {
    url         string
    exchange    string
    log         logrus.FieldLogger
    dialTimeout time.Duration

    mu   sync.Mutex
    conn *amqp.Connection
    ch   *amqp.Channel
}

// NewAMQPPublisher does not dial; the first Publish does.
func NewAMQPPublisher(url, exchange string, log logrus.FieldLogger) *AMQPPublisher {
    return &AMQPPublisher{url: url, exchange: exchange, log: log, dialTimeout: defaultDialTimeout}
}

// channel returns the open channel or dials a new one.  The dial never
// outlives ctx or dialTimeout, whichever ends first.
func (p *AMQPPublisher) channel(ctx context.Context) (*amqp.Channel, error) {
    if p.ch != nil && !p.ch.IsClosed() {
        return p.ch, nil
    }
    p.closeLocked()
    if err := ctx.Err(); err != nil {
        return nil, fmt.Errorf("dial rabbitmq: %w", err)
    }
    timeout := p.dialTimeout
    if dl, ok := ctx.Deadline(); ok {
        if left := time.Until(dl); left < timeout {
            timeout = left
        }
    }
    conn, err := amqp.DialConfig(p.url, amqp.Config{
        Dial:      amqp.DefaultDial(timeout),
        Heartbeat: 10 * time.Second,
        Locale:    "en_US",
    })
    if err != nil {
        return nil, fmt.Errorf("dial rabbitmq: %w", err)
    }
    ch, err := conn.Channel()
    if err != nil {
        _ = conn.Close()
        return nil, fmt.Errorf("open channel: %w", err)
    }
    if err := declareExchange(ch, p.exchange); err != nil {
        _ = ch.Close()
        _ = conn.Close()
        return nil, err
    }
    p.conn, p.ch = conn, ch
    return ch, nil
}

func declareExchange(ch *amqp.Channel, exchange string) error {
    // Durable so bindings survive broker restarts.
    if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
        return fmt.Errorf("declare exchange: %w", err)
    }
    return nil
}

// Publish marshals ev and sends it as a persistent message.
func (p *AMQPPublisher) Publish(ctx context.Context, ev BookingEvent) error {
    body, err := json.Marshal(ev)
    if err != nil {
        return fmt.Errorf("marshal event: %w", err)
    }
    p.mu.Lock()
    defer p.mu.Unlock()
    ch, err := p.channel(ctx)
    if err != nil {
        p.log.WithError(err).Warn("rabbitmq: connect failed")
        return err
    }
    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        MessageId:    ev.EventID,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, p.exchange, ev.Type, false, false, pub); err != nil {
        p.closeLocked()
        return fmt.Errorf("publish %s: %w", ev.Type, err)
    }
    return nil
}

// Close releases the channel and connection.
func (p *AMQPPublisher) Close() error {
    p.mu.Lock()
    defer p.mu.Unlock()
    return p.closeLocked()
}

func (p *AMQPPublisher) closeLocked() error {
    var err error
    if p.ch != nil {
        _ = p.ch.Close()
        p.ch = nil
    }
    if p.conn != nil {
        err = p.conn.Close()
        p.conn = nil
    }
    return err
}
