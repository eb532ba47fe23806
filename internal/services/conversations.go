package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/shadowtwin/internal/conversation"
	"github.com/snappy-loop/shadowtwin/internal/models"
)

const maxTurnLength = 2000

// ConversationService owns in-memory chat sessions and who may use them
type ConversationService struct {
	store       *conversation.Store
	vendors     ConversationVendors
	simulations *SimulationService

	mu     sync.RWMutex
	owners map[uuid.UUID]uuid.UUID
}

// NewConversationService creates a new ConversationService. simulations may be nil, in
// which case conversations can only start from an inline input.
func NewConversationService(store *conversation.Store, vendors ConversationVendors, simulations *SimulationService) *ConversationService {
	return &ConversationService{
		store:       store,
		vendors:     vendors,
		simulations: simulations,
		owners:      make(map[uuid.UUID]uuid.UUID),
	}
}

// Start opens a conversation from a stored simulation or an inline input.
func (s *ConversationService) Start(ctx context.Context, userID uuid.UUID, req *models.CreateConversationRequest) (uuid.UUID, error) {
	in := req.Input
	if req.SimulationID != nil {
		if s.simulations == nil {
			return uuid.Nil, fmt.Errorf("%w: simulation_id not supported", ErrInvalidInput)
		}
		sim, err := s.simulations.Get(ctx, userID, *req.SimulationID)
		if err != nil {
			return uuid.Nil, err
		}
		in = sim.Input
	}
	if err := validateInput(in); err != nil {
		return uuid.Nil, err
	}

	var opts []conversation.Option
	if tts := s.vendors.Speech(); tts != nil {
		opts = append(opts, conversation.WithSpeech(tts, s.vendors.Voices().VoiceFor(in.UnpursuedDreams, in.PastDecisions)))
	}
	session := s.store.Create(in, s.vendors.Content(), opts...)

	s.mu.Lock()
	s.owners[session.ID()] = userID
	s.mu.Unlock()

	log.Info().
		Str("conversation_id", session.ID().String()).
		Str("user_id", userID.String()).
		Bool("speech", len(opts) > 0).
		Msg("Conversation started")
	return session.ID(), nil
}

// Submit sends one user message and returns the twin's reply
func (s *ConversationService) Submit(ctx context.Context, userID, conversationID uuid.UUID, text string) (models.ConversationTurn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.ConversationTurn{}, fmt.Errorf("%w: text is required", ErrInvalidInput)
	}
	if len(text) > maxTurnLength {
		return models.ConversationTurn{}, fmt.Errorf("%w: text exceeds %d characters", ErrInvalidInput, maxTurnLength)
	}
	session, err := s.session(userID, conversationID)
	if err != nil {
		return models.ConversationTurn{}, err
	}
	return session.SubmitUserTurn(ctx, text), nil
}

// Transcript returns the conversation so far
func (s *ConversationService) Transcript(userID, conversationID uuid.UUID) ([]models.ConversationTurn, error) {
	session, err := s.session(userID, conversationID)
	if err != nil {
		return nil, err
	}
	return session.Transcript(), nil
}

// End drops a conversation after its pending audio finished
func (s *ConversationService) End(userID, conversationID uuid.UUID) error {
	if _, err := s.session(userID, conversationID); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.owners, conversationID)
	s.mu.Unlock()
	s.store.Delete(conversationID)
	return nil
}

func (s *ConversationService) session(userID, conversationID uuid.UUID) (*conversation.Session, error) {
	s.mu.RLock()
	owner, ok := s.owners[conversationID]
	s.mu.RUnlock()
	if !ok || owner != userID {
		return nil, ErrNotFound
	}
	session, ok := s.store.Get(conversationID)
	if !ok {
		return nil, ErrNotFound
	}
	return session, nil
}
