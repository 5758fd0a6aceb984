package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/flightcore/config"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

const (
	defaultHeartbeat      = 3 * time.Second
	defaultSessionTimeout = 30 * time.Second
)

// Handler processes one consumed message. Returning an error stops the
// consume loop; stream handlers that must survive bad input contain their
// errors and return nil.
type Handler func(ctx context.Context, msg kafka.Message) error

type Consumer struct {
	reader *kafka.Reader
	topic  string
}

func NewConsumer(cfg config.KafkaConfig, topic string) *Consumer {
	heartbeat := time.Duration(cfg.HeartbeatSeconds) * time.Second
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	session := time.Duration(cfg.SessionTimeoutSeconds) * time.Second
	if session <= 0 {
		session = defaultSessionTimeout
	}
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:           cfg.Brokers,
			GroupID:           cfg.GroupID,
			Topic:             topic,
			HeartbeatInterval: heartbeat,
			SessionTimeout:    session,
		}),
		topic: topic,
	}
}

func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// Consume reads until the context is canceled or the handler fails.
func (c *Consumer) Consume(ctx context.Context, handler Handler) error {
	log.Info().Str("topic", c.topic).Msg("consumer started")
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info().Str("topic", c.topic).Msg("consumer stopped")
				return ctx.Err()
			}
			return fmt.Errorf("read message from %s: %w", c.topic, err)
		}
		if err := handler(ctx, msg); err != nil {
			log.Error().Err(err).Str("topic", c.topic).Msg("consumer handler failed")
			return err
		}
	}
}
