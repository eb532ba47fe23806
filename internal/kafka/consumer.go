package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"github.com/snappy-loop/shadowtwin/internal/models"
)

const (
	maxBackoffShift = 10
	baseDelay       = 1 * time.Second
	maxDelay        = 5 * time.Minute
	maxAttempts     = 20 // after this many attempts the message is skipped so the partition keeps moving
)

// errMalformed marks messages that can never be processed and are skipped without retry.
var errMalformed = errors.New("malformed message")

// StageEventHandler processes one stage event. It must be idempotent: a message is
// redelivered after a failed commit.
type StageEventHandler interface {
	HandleStageEvent(ctx context.Context, e models.StageEvent) error
}

// Consumer reads stage events in a consumer group
type Consumer struct {
	reader  *kafka.Reader
	handler StageEventHandler
}

// NewConsumer creates a new Kafka consumer
func NewConsumer(brokers []string, topic, groupID string, handler StageEventHandler) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		CommitInterval: 0,    // manual commits
		// Without a committed offset, start at the beginning so events published before the
		// first worker start are not lost.
		StartOffset: kafka.FirstOffset,
	})

	log.Info().
		Strs("brokers", brokers).
		Str("topic", topic).
		Str("group_id", groupID).
		Msg("Kafka consumer initialized")

	return &Consumer{
		reader:  reader,
		handler: handler,
	}
}

// retryDelay is the exponential backoff before attempt+1, capped at maxDelay.
func retryDelay(attempt int) time.Duration {
	delay := baseDelay * time.Duration(1<<uint(min(attempt, maxBackoffShift)))
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}

// Start consumes until ctx is cancelled
func (c *Consumer) Start(ctx context.Context) error {
	log.Info().Msg("Starting Kafka consumer")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info().Msg("Consumer context cancelled, stopping")
				return ctx.Err()
			}
			log.Error().Err(err).Msg("Failed to fetch message")
			continue
		}

		if err := c.processWithRetry(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error().
				Err(err).
				Str("topic", msg.Topic).
				Int("partition", msg.Partition).
				Int64("offset", msg.Offset).
				Msg("Skipping message after failed processing")
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			log.Error().Err(err).Msg("Failed to commit message")
		}
	}
}

func (c *Consumer) processWithRetry(ctx context.Context, msg kafka.Message) error {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		lastErr = processMessage(ctx, c.handler, msg)
		if lastErr == nil || errors.Is(lastErr, errMalformed) {
			return lastErr
		}

		log.Warn().
			Err(lastErr).
			Int64("offset", msg.Offset).
			Int("attempt", attempt+1).
			Msg("Failed to process message - will retry")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryDelay(attempt)):
		}
	}
	return lastErr
}

// processMessage decodes and handles a single message
func processMessage(ctx context.Context, h StageEventHandler, msg kafka.Message) error {
	var e models.StageEvent
	if err := json.Unmarshal(msg.Value, &e); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	if err := h.HandleStageEvent(ctx, e); err != nil {
		return fmt.Errorf("handler error: %w", err)
	}

	log.Debug().
		Str("simulation_id", e.SimulationID.String()).
		Str("stage", string(e.Stage)).
		Str("status", string(e.Status)).
		Msg("Stage event processed")
	return nil
}

// Close closes the consumer
func (c *Consumer) Close() error {
	log.Info().Msg("Closing Kafka consumer")
	return c.reader.Close()
}
