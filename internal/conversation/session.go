package conversation

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/shadowtwin/internal/llm"
	"github.com/snappy-loop/shadowtwin/internal/models"
	"github.com/snappy-loop/shadowtwin/internal/script"
	"github.com/snappy-loop/shadowtwin/internal/speech"
)

// Synthesizer is the speech vendor as a session uses it.
type Synthesizer interface {
	SynthesizeSpeech(ctx context.Context, text, voiceID string, settings speech.Settings) (*models.AudioClip, error)
}

// fallbackReplies keep the twin in character when generation fails.
var fallbackReplies = []string{
	"It's hard to put into words. Some days it feels like the bravest thing you ever did, other days it just feels like Tuesday.",
	"I think about that too. Every path has its quiet moments where you wonder about the other one.",
	"Honestly? It was messier than you'd imagine, and better than you'd expect.",
	"You'd be surprised how much of me is still you. Same worries, just a different view out the window.",
}

// Session is one conversation with the alternate self. Turns are appended under a lock in
// call order and are never removed; only a twin turn's audio is attached later.
type Session struct {
	id    uuid.UUID
	input models.SimulationInput
	gen   llm.Generator
	tts   Synthesizer
	voice string

	mu     sync.Mutex
	turns  []models.ConversationTurn
	replay sync.Mutex // serializes whole submits so each prompt sees the previous reply
	audio  sync.WaitGroup

	audioTimeout time.Duration
	now          func() time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithSpeech enables reply audio with the given voice id.
func WithSpeech(tts Synthesizer, voiceID string) Option {
	return func(s *Session) {
		s.tts = tts
		s.voice = voiceID
	}
}

// WithClock replaces time.Now for turn timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// NewSession starts an empty transcript. gen may be nil, in which case every reply is a fallback.
func NewSession(in models.SimulationInput, gen llm.Generator, opts ...Option) *Session {
	s := &Session{
		id:           uuid.New(),
		input:        in,
		gen:          gen,
		audioTimeout: 60 * time.Second,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID identifies the session.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// SubmitUserTurn appends the user's message, generates and appends the twin's reply and
// returns it. It never fails; generation problems produce an in-character fallback line.
// Reply audio, when enabled, is attached asynchronously.
func (s *Session) SubmitUserTurn(ctx context.Context, text string) models.ConversationTurn {
	s.replay.Lock()
	defer s.replay.Unlock()

	history := s.Transcript()
	s.appendTurn(models.SpeakerUser, text)

	reply := s.generateReply(ctx, history, text)
	twin := s.appendTurn(models.SpeakerTwin, reply)

	if s.tts != nil && s.voice != "" {
		s.audio.Add(1)
		go s.attachAudio(twin.ID, twin.Text)
	}
	return twin
}

func (s *Session) generateReply(ctx context.Context, history []models.ConversationTurn, text string) string {
	if s.gen == nil {
		return s.fallbackReply()
	}
	prompt := script.ConversationPrompt(s.input, history, text)
	raw, err := s.gen.GenerateStructuredContent(ctx, prompt, llm.ChatOptions(script.PersonaInstruction(s.input)))
	if err != nil {
		log.Warn().Err(err).Str("session_id", s.id.String()).Msg("Twin reply failed, using fallback line")
		return s.fallbackReply()
	}
	reply := strings.TrimSpace(raw)
	if reply == "" {
		return s.fallbackReply()
	}
	return script.LimitWords(reply, script.MaxReplyWords)
}

// fallbackReply rotates through the fixed lines by transcript length.
func (s *Session) fallbackReply() string {
	s.mu.Lock()
	n := len(s.turns)
	s.mu.Unlock()
	return fallbackReplies[(n/2)%len(fallbackReplies)]
}

func (s *Session) appendTurn(speaker models.Speaker, text string) models.ConversationTurn {
	turn := models.ConversationTurn{
		ID:        uuid.New(),
		Speaker:   speaker,
		Text:      text,
		CreatedAt: s.now(),
	}
	s.mu.Lock()
	s.turns = append(s.turns, turn)
	s.mu.Unlock()
	return turn
}

// attachAudio runs detached from the request context so the reply can be voiced after it returns.
func (s *Session) attachAudio(turnID uuid.UUID, text string) {
	defer s.audio.Done()
	ctx, cancel := context.WithTimeout(context.Background(), s.audioTimeout)
	defer cancel()

	clip, err := s.tts.SynthesizeSpeech(ctx, text, s.voice, speech.DefaultSettings())
	if err != nil {
		log.Warn().Err(err).Str("turn_id", turnID.String()).Msg("Reply audio failed")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.turns {
		if s.turns[i].ID == turnID {
			s.turns[i].Audio = clip
			return
		}
	}
}

// Transcript returns a copy of the turns in order.
func (s *Session) Transcript() []models.ConversationTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ConversationTurn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Wait blocks until pending reply audio has been attached or abandoned.
func (s *Session) Wait() {
	s.audio.Wait()
}
