package queue

import (
    "context"
    "errors"
    "time"

    "github.com/segmentio/kafka-go"
    "github.com/sirupsen/logrus"
)

// KafkaAuditConsumer reads booking events from a topic within a consumer
// group and appends them to the audit log.
type KafkaAuditConsumer struct {
    reader *kafka.Reader
    audit  *AuditLog
    log    logrus.FieldLogger
}

func NewKafkaAuditConsumer(brokers []string, groupID, topic string, audit *AuditLog, log logrus.FieldLogger) *KafkaAuditConsumer {
    return &KafkaAuditConsumer{
        reader: kafka.NewReader(kafka.ReaderConfig{
            Brokers:           brokers,
            GroupID:           groupID,
            Topic:             topic,
            HeartbeatInterval: 3 * time.Second,
            SessionTimeout:    30 * time.Second,
        }),
        audit: audit,
        log:   log.WithField("component", "audit-consumer"),
    }
}

// Run consumes until ctx is cancelled.  Offsets are committed after the
// audit line is written; malformed messages are logged and committed.
func (c *KafkaAuditConsumer) Run(ctx context.Context) error {
    for {
        msg, err := c.reader.FetchMessage(ctx)
        if err != nil {
            if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
                return ctx.Err()
            }
            return err
        }
        if err := c.audit.HandleMessage(msg.Value); err != nil {
            c.log.WithFields(logrus.Fields{"partition": msg.Partition, "offset": msg.Offset}).
                WithError(err).Error("handle message failed")
        }
        if err := c.reader.CommitMessages(ctx, msg); err != nil {
            return err
        }
    }
}

func (c *KafkaAuditConsumer) Close() error {
    if c == nil || c.reader == nil {
        return nil
    }
    return c.reader.Close()
}
