package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/shadowtwin/internal/config"
	"github.com/snappy-loop/shadowtwin/internal/database"
	"github.com/snappy-loop/shadowtwin/internal/kafka"
	"github.com/snappy-loop/shadowtwin/internal/models"
	"github.com/snappy-loop/shadowtwin/migrations"
)

// EventRecorder implements kafka.StageEventHandler
type EventRecorder struct {
	events *database.EventRepository
}

func (h *EventRecorder) HandleStageEvent(ctx context.Context, e models.StageEvent) error {
	return h.events.Insert(ctx, e)
}

func main() {
	cfg := config.Load()

	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().Msg("Starting ShadowTwin Worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := migrations.Run(ctx, db.DB); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	consumer := kafka.NewConsumer(
		cfg.KafkaBrokers,
		cfg.KafkaTopicEvents,
		cfg.KafkaConsumerGroup,
		&EventRecorder{events: database.NewEventRepository(db)},
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := consumer.Start(ctx); err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("Kafka consumer error")
		}
	}()

	log.Info().Msg("Worker started, consuming stage events...")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker...")
	cancel()
	<-done

	if err := consumer.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close consumer")
	}
	log.Info().Msg("Worker exited")
}
