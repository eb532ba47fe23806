package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/snappy-loop/shadowtwin/internal/llm"
	"github.com/snappy-loop/shadowtwin/internal/models"
	"github.com/snappy-loop/shadowtwin/internal/pipeline"
	"github.com/snappy-loop/shadowtwin/internal/speech"
)

var (
	// ErrNotFound is returned for a missing resource or one owned by another user.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput wraps request validation failures.
	ErrInvalidInput = errors.New("invalid input")
)

// SimulationRunner is the subset of the pipeline used by SimulationService.
type SimulationRunner interface {
	RunWithProgress(ctx context.Context, in models.SimulationInput, progress pipeline.ProgressFunc) *models.PipelineResult
	GenerateAvatarVideo(ctx context.Context, in models.SimulationInput, image []byte) (string, error)
}

// EventPublisher publishes stage events (e.g. to Kafka). May be nil to skip publishing.
type EventPublisher interface {
	PublishStageEvent(ctx context.Context, e models.StageEvent) error
}

// Uploader stores a blob and returns its URL.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// ConversationVendors supplies the clients a new conversation uses; both may be nil.
type ConversationVendors interface {
	Content() llm.Generator
	Speech() pipeline.SpeechSynthesizer
	Voices() speech.VoiceSet
}

// simulationRepository is the subset of simulation DB operations used by SimulationService.
type simulationRepository interface {
	Create(ctx context.Context, s *models.Simulation) error
	UpdateState(ctx context.Context, id uuid.UUID, state string) error
	SaveResult(ctx context.Context, id uuid.UUID, state string, result *models.PipelineResult) error
	SetVideoURL(ctx context.Context, id uuid.UUID, url string) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Simulation, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int, cursor *time.Time) ([]*models.Simulation, error)
}

// profileRepository is the subset of profile DB operations used by ProfileService.
type profileRepository interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	Upsert(ctx context.Context, p *models.Profile) error
}
