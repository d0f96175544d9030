package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"

	"ms-volunteer/internal/logger"

	"github.com/segmentio/kafka-go"
)

// MessageReader is the part of *kafka.Reader the consumer uses.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Handler processes one message. Returned errors are logged and the message is skipped.
type Handler func(ctx context.Context, topic string, value []byte) error

type Consumer struct {
	Reader MessageReader
	Logger *logger.Logger
}

// NewConsumer creates a consumer-group reader over the given topics.
func NewConsumer(brokers, topics []string, groupID string, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupTopics: topics,
		GroupID:     groupID,
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
	})
	return &Consumer{Reader: reader, Logger: log}
}

// Start reads messages until ctx is cancelled or the reader is closed (io.EOF).
func (c *Consumer) Start(ctx context.Context, handler Handler) {
	c.Logger.Info("KAFKA", "Consumer started")

	for {
		msg, err := c.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				c.Logger.Info("KAFKA", "Consumer stopped")
				return
			}
			c.Logger.Error("KAFKA", fmt.Sprintf("Error reading message: %v", err))
			continue
		}

		c.Logger.LogKafka("RECEIVE", msg.Topic, string(msg.Key))
		if err := handler(ctx, msg.Topic, msg.Value); err != nil {
			c.Logger.Warn("KAFKA", fmt.Sprintf("Skipping message on %s: %v", msg.Topic, err))
		}
	}
}

func (c *Consumer) Close() error {
	return c.Reader.Close()
}
