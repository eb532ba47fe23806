package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/shadowtwin/internal/database"
	"github.com/snappy-loop/shadowtwin/internal/flow"
	"github.com/snappy-loop/shadowtwin/internal/models"
	"github.com/snappy-loop/shadowtwin/internal/pipeline"
	"github.com/snappy-loop/shadowtwin/internal/quota"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	maxFieldLength   = 5000
	publishBuffer    = 32
)

// SimulationService runs simulations for users and persists them
type SimulationService struct {
	repo      simulationRepository
	runner    SimulationRunner
	publisher EventPublisher
	quota     *quota.Limiter
	now       func() time.Time
}

// NewSimulationService creates a new SimulationService. publisher and limiter may be nil.
func NewSimulationService(repo simulationRepository, runner SimulationRunner, publisher EventPublisher, limiter *quota.Limiter) *SimulationService {
	return &SimulationService{
		repo:      repo,
		runner:    runner,
		publisher: publisher,
		quota:     limiter,
		now:       time.Now,
	}
}

// Create persists a new simulation, runs the pipeline and stores the result.
// progress, when set, receives every stage event stamped with the simulation id.
func (s *SimulationService) Create(ctx context.Context, userID uuid.UUID, in models.SimulationInput, progress pipeline.ProgressFunc) (*models.Simulation, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	reservation, err := s.quota.Reserve(userID)
	if err != nil {
		return nil, err
	}

	m := flow.NewMachine()
	if err := m.Fire(flow.Start); err != nil {
		return nil, err
	}

	now := s.now()
	sim := &models.Simulation{
		ID:        uuid.New(),
		UserID:    userID,
		State:     string(m.State()),
		Input:     in,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, sim); err != nil {
		reservation.Refund()
		return nil, fmt.Errorf("failed to create simulation: %w", err)
	}

	if err := s.advance(ctx, m, sim, flow.Submit); err != nil {
		return nil, err
	}

	log.Info().
		Str("simulation_id", sim.ID.String()).
		Str("user_id", userID.String()).
		Msg("Simulation started")

	events, stop := s.startPublishing(ctx)
	res := s.runner.RunWithProgress(ctx, in, func(e models.StageEvent) {
		e.SimulationID = sim.ID
		if events != nil {
			events <- e
		}
		if progress != nil {
			progress(e)
		}
	})
	stop()

	if err := m.Fire(flow.Complete); err != nil {
		return nil, err
	}
	// The run may have outlived the request; the result is still worth keeping.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.repo.SaveResult(saveCtx, sim.ID, string(m.State()), res); err != nil {
		return nil, fmt.Errorf("failed to save simulation result: %w", err)
	}
	sim.State = string(m.State())
	sim.Result = res
	sim.UpdatedAt = s.now()

	log.Info().
		Str("simulation_id", sim.ID.String()).
		Int("errors", len(res.Errors)).
		Int("voice_clips", len(res.VoiceClips)).
		Msg("Simulation completed")
	return sim, nil
}

func (s *SimulationService) advance(ctx context.Context, m *flow.Machine, sim *models.Simulation, e flow.Event) error {
	if err := m.Fire(e); err != nil {
		return err
	}
	if err := s.repo.UpdateState(ctx, sim.ID, string(m.State())); err != nil {
		return fmt.Errorf("failed to update simulation state: %w", err)
	}
	sim.State = string(m.State())
	return nil
}

// startPublishing forwards events to the publisher off the pipeline's goroutines.
// stop drains the queue and returns once every event was handed over.
func (s *SimulationService) startPublishing(ctx context.Context) (chan<- models.StageEvent, func()) {
	if s.publisher == nil {
		return nil, func() {}
	}
	pubCtx := context.WithoutCancel(ctx)
	events := make(chan models.StageEvent, publishBuffer)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range events {
			if err := s.publisher.PublishStageEvent(pubCtx, e); err != nil {
				log.Error().
					Err(err).
					Str("simulation_id", e.SimulationID.String()).
					Str("stage", string(e.Stage)).
					Msg("Failed to publish stage event")
			}
		}
	}()
	return events, func() {
		close(events)
		<-done
	}
}

func (s *SimulationService) publish(ctx context.Context, e models.StageEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishStageEvent(ctx, e); err != nil {
		log.Error().Err(err).Str("simulation_id", e.SimulationID.String()).Msg("Failed to publish stage event")
	}
}

// GenerateAvatar renders the avatar video for a stored simulation and records its URL.
// Pipeline errors are returned unchanged so callers can classify them.
func (s *SimulationService) GenerateAvatar(ctx context.Context, userID, simulationID uuid.UUID, image []byte) (string, error) {
	sim, err := s.Get(ctx, userID, simulationID)
	if err != nil {
		return "", err
	}

	s.publish(ctx, models.StageEvent{SimulationID: sim.ID, Stage: models.StageAvatar, Status: models.StageStarted, At: s.now()})
	url, err := s.runner.GenerateAvatarVideo(ctx, sim.Input, image)
	if err != nil {
		s.publish(context.WithoutCancel(ctx), models.StageEvent{
			SimulationID: sim.ID,
			Stage:        models.StageAvatar,
			Status:       models.StageFailed,
			Message:      err.Error(),
			At:           s.now(),
		})
		return "", err
	}

	if err := s.repo.SetVideoURL(ctx, sim.ID, url); err != nil {
		return "", fmt.Errorf("failed to save video url: %w", err)
	}
	s.publish(ctx, models.StageEvent{SimulationID: sim.ID, Stage: models.StageAvatar, Status: models.StageSucceeded, At: s.now()})

	log.Info().Str("simulation_id", sim.ID.String()).Msg("Avatar video ready")
	return url, nil
}

// Get returns a simulation owned by userID
func (s *SimulationService) Get(ctx context.Context, userID, simulationID uuid.UUID) (*models.Simulation, error) {
	sim, err := s.repo.GetByID(ctx, simulationID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get simulation: %w", err)
	}
	// Verify ownership
	if sim.UserID != userID {
		return nil, ErrNotFound
	}
	return sim, nil
}

// SimulationPage is one page of a user's simulations.
// NextCursor is set when the page is full.
type SimulationPage struct {
	Simulations []*models.Simulation
	NextCursor  *time.Time
}

// List returns a page of the user's simulations, newest first
func (s *SimulationService) List(ctx context.Context, userID uuid.UUID, limit int, cursor *time.Time) (*SimulationPage, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	sims, err := s.repo.ListByUser(ctx, userID, limit, cursor)
	if err != nil {
		return nil, fmt.Errorf("failed to list simulations: %w", err)
	}
	page := &SimulationPage{Simulations: sims}
	if len(sims) == limit {
		next := sims[len(sims)-1].CreatedAt
		page.NextCursor = &next
	}
	return page, nil
}

// validateInput rejects inputs with nothing to simulate or oversized fields.
func validateInput(in models.SimulationInput) error {
	fields := map[string]string{
		"subject_name":         in.SubjectName,
		"current_life_summary": in.CurrentLifeSummary,
		"past_decisions":       in.PastDecisions,
		"unpursued_dreams":     in.UnpursuedDreams,
	}
	empty := true
	for name, v := range fields {
		if len(v) > maxFieldLength {
			return fmt.Errorf("%w: %s exceeds %d characters", ErrInvalidInput, name, maxFieldLength)
		}
		if strings.TrimSpace(v) != "" {
			empty = false
		}
	}
	if empty {
		return fmt.Errorf("%w: at least one field is required", ErrInvalidInput)
	}
	return nil
}
