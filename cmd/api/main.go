package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/shadowtwin/internal/auth"
	"github.com/snappy-loop/shadowtwin/internal/config"
	"github.com/snappy-loop/shadowtwin/internal/conversation"
	"github.com/snappy-loop/shadowtwin/internal/database"
	"github.com/snappy-loop/shadowtwin/internal/handlers"
	"github.com/snappy-loop/shadowtwin/internal/kafka"
	"github.com/snappy-loop/shadowtwin/internal/pipeline"
	"github.com/snappy-loop/shadowtwin/internal/quota"
	"github.com/snappy-loop/shadowtwin/internal/services"
	"github.com/snappy-loop/shadowtwin/internal/storage"
	"github.com/snappy-loop/shadowtwin/migrations"
)

func main() {
	cfg := config.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().Msg("Starting ShadowTwin API")

	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET is required")
	}

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

	storageClient, err := storage.NewClient(ctx,
		cfg.S3Endpoint, cfg.S3Region, cfg.S3Bucket,
		cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3PublicURL,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize storage client")
	}

	kafkaProducer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicEvents)
	defer kafkaProducer.Close()

	pipe := pipeline.New(
		pipeline.WithFactory(pipeline.NewVendorFactory(cfg)),
		pipeline.WithUploader(storageClient),
		pipeline.WithVoices(pipeline.VoicesFromConfig(cfg)),
		pipeline.WithPolling(cfg.AvatarPollInterval, cfg.AvatarPollTimeout),
	)
	if err := pipe.Configure(ctx, pipeline.CredentialsFromConfig(cfg)); err != nil {
		log.Fatal().Err(err).Msg("Failed to configure vendor clients")
	}

	authService := auth.NewService(database.NewUserRepository(db), cfg.JWTSecret, cfg.JWTTTL)
	simulationService := services.NewSimulationService(
		database.NewSimulationRepository(db),
		pipe,
		kafkaProducer,
		quota.NewLimiter(cfg.SimulationQuota, cfg.SimulationQuotaPeriod),
	)
	profileService := services.NewProfileService(database.NewProfileRepository(db), storageClient, cfg.MaxPortraitSize)
	conversationService := services.NewConversationService(conversation.NewStore(), pipe, simulationService)

	h := handlers.NewHandler(
		authService,
		simulationService,
		profileService,
		conversationService,
		db,
		cfg.MaxPortraitSize,
	)

	srv := &http.Server{
		Addr:        cfg.HTTPAddr,
		Handler:     h.Router(authService.Middleware),
		ReadTimeout: 15 * time.Second,
		// Simulations and avatar renders are answered synchronously.
		WriteTimeout: cfg.AvatarPollTimeout + time.Minute,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down API...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}
	log.Info().Msg("API exited")
}
