package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ms-volunteer/internal/config"
	"ms-volunteer/internal/logger"
	"ms-volunteer/internal/models"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	Writer MessageWriter
	Topics config.TopicConfig
	Logger *logger.Logger
}

func NewProducer(brokers []string, topics config.TopicConfig, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}
	return &Producer{Writer: writer, Topics: topics, Logger: log}
}

// PublishRegistrationCreated streams a new registration to Kafka, keyed by event.
func (p *Producer) PublishRegistrationCreated(ctx context.Context, msg models.RegistrationCreatedMessage) error {
	return p.publish(ctx, p.Topics.RegistrationCreated, msg.EventID, msg)
}

// PublishAttendanceMarked streams an accepted check-in to Kafka, keyed by event.
func (p *Producer) PublishAttendanceMarked(ctx context.Context, msg models.AttendanceMarkedMessage) error {
	return p.publish(ctx, p.Topics.AttendanceMarked, msg.EventID, msg)
}

func (p *Producer) publish(ctx context.Context, topic, key string, v interface{}) error {
	msgBytes, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", topic, err)
	}

	p.Logger.LogKafka("PUBLISH", topic, string(msgBytes))

	err = p.Writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: msgBytes,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
