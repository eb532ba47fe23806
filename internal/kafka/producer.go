package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"github.com/snappy-loop/shadowtwin/internal/models"
)

// Producer publishes simulation stage events
type Producer struct {
	writer *kafka.Writer
	topic  string
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{}, // keep one simulation's events on one partition, in order
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
		Async:                  false,
	}

	log.Info().
		Strs("brokers", brokers).
		Str("topic", topic).
		Msg("Kafka producer initialized")

	return &Producer{
		writer: writer,
		topic:  topic,
	}
}

// encodeStageEvent builds the message for e, keyed by simulation id.
func encodeStageEvent(e models.StageEvent) (kafka.Message, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal stage event: %w", err)
	}
	return kafka.Message{Key: []byte(e.SimulationID.String()), Value: data}, nil
}

// PublishStageEvent publishes one stage event
func (p *Producer) PublishStageEvent(ctx context.Context, e models.StageEvent) error {
	msg, err := encodeStageEvent(e)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	log.Debug().
		Str("simulation_id", e.SimulationID.String()).
		Str("stage", string(e.Stage)).
		Str("status", string(e.Status)).
		Str("topic", p.topic).
		Msg("Stage event published to Kafka")
	return nil
}

// Close closes the producer
func (p *Producer) Close() error {
	log.Info().Msg("Closing Kafka producer")
	return p.writer.Close()
}
