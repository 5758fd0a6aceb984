package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// FlightUpdateEvent triggers incremental path precomputation for one
// (source, destination, date) combination.
type FlightUpdateEvent struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Date        string `json:"date"`
}

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 50 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
	}
}

// PublishSeatUpdate emits the flight id to the seat-update stream. One event
// is published per confirmed booking.
func (p *Producer) PublishSeatUpdate(ctx context.Context, topic, flightID string) error {
	return p.write(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(flightID),
		Value: []byte(flightID),
	})
}

// PublishFlightUpdate emits a JSON {source, destination, date} object to the
// flight-update stream.
func (p *Producer) PublishFlightUpdate(ctx context.Context, topic string, event FlightUpdateEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal flight update: %w", err)
	}
	return p.write(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(event.Source + "-" + event.Destination + "-" + event.Date),
		Value: data,
	})
}

func (p *Producer) write(ctx context.Context, msg kafka.Message) error {
	msg.Time = time.Now()
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write message to %s: %w", msg.Topic, err)
	}
	return nil
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
