package queue

import (
    "context"
    "encoding/json"
    "fmt"
    "strconv"
    "time"

    "github.com/segmentio/kafka-go"
    "github.com/sirupsen/logrus"
)

// KafkaPublisher writes booking events to one topic keyed by booking id, so
// all events of a booking land on the same partition in order.
type KafkaPublisher struct {
    writer *kafka.Writer
    log    logrus.FieldLogger
}

// NewKafkaPublisher creates a synchronous writer.
func NewKafkaPublisher(brokers []string, topic string, log logrus.FieldLogger) *KafkaPublisher {
    return &KafkaPublisher{
        writer: &kafka.Writer{
            Addr:                   kafka.TCP(brokers...),
            Topic:                  topic,
            Balancer:               &kafka.Hash{},
            BatchTimeout:           50 * time.Millisecond,
            RequiredAcks:           kafka.RequireOne,
            AllowAutoTopicCreation: true,
        },
        log: log,
    }
}

// Publish writes ev and waits for the leader's ack.
func (p *KafkaPublisher) Publish(ctx context.Context, ev BookingEvent) error {
    data, err := json.Marshal(ev)
    if err != nil {
        return fmt.Errorf("marshal event: %w", err)
    }
    msg := kafka.Message{
        Key:   []byte(strconv.FormatUint(ev.BookingID, 10)),
        Value: data,
        Headers: []kafka.Header{
            {Key: "type", Value: []byte(ev.Type)},
            {Key: "event_id", Value: []byte(ev.EventID)},
        },
        Time: time.Now().UTC(),
    }
    if err := p.writer.WriteMessages(ctx, msg); err != nil {
        return fmt.Errorf("write %s to kafka: %w", ev.Type, err)
    }
    p.log.WithFields(logrus.Fields{"topic": p.writer.Topic, "type": ev.Type, "booking_id": ev.BookingID}).Debug("event published")
    return nil
}

func (p *KafkaPublisher) Close() error {
    if p.writer != nil {
        return p.writer.Close()
    }
    return nil
}
