// Package events streams global activities to kafka for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/xelth-com/centerhub/internal/models"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

// Writer is the subset of kafka.Writer the publisher needs
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes each global activity to a topic, keyed by center id so
// one center's activities stay ordered on a single partition.
type KafkaPublisher struct {
	writer Writer
	topic  string
	log    *zap.Logger
}

// NewKafkaPublisher creates a publisher for broker/topic
func NewKafkaPublisher(broker, topic string, log *zap.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(broker),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return &KafkaPublisher{writer: w, topic: topic, log: log}
}

// NewKafkaPublisherWithWriter allows injecting a test writer
func NewKafkaPublisherWithWriter(w Writer, topic string, log *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: w, topic: topic, log: log}
}

// Publish implements activity.Publisher
func (p *KafkaPublisher) Publish(ctx context.Context, a models.GlobalActivity) error {
	value, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal activity %s: %w", a.ID, err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(a.CenterID),
		Value: value,
		Time:  a.Timestamp,
		Headers: []kafka.Header{
			{Key: "category", Value: []byte(a.Category)},
			{Key: "activity_id", Value: []byte(a.ID)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write to %s: %w", p.topic, err)
	}
	p.log.Debug("activity published", zap.String("topic", p.topic), zap.String("activity_id", a.ID))
	return nil
}

// Close flushes and closes the writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
