// Package pipeline runs one alternate-life simulation across the content, speech and avatar vendors.
//
// Run never fails: each batch stage either succeeds or substitutes a deterministic fallback and
// records why. Only GenerateAvatarVideo, which the user triggers explicitly, returns errors.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/shadowtwin/internal/avatar"
	"github.com/snappy-loop/shadowtwin/internal/llm"
	"github.com/snappy-loop/shadowtwin/internal/models"
	"github.com/snappy-loop/shadowtwin/internal/speech"
)

// ErrNotConfigured is the sentinel behind every ConfigurationError.
var ErrNotConfigured = errors.New("not configured")

// ConfigurationError reports a missing credential or collaborator, checked before any call.
type ConfigurationError struct {
	Missing string
}

func (e *ConfigurationError) Error() string {
	return e.Missing + ": not configured"
}

func (e *ConfigurationError) Unwrap() error {
	return ErrNotConfigured
}

// SpeechSynthesizer is the speech vendor as the pipeline uses it.
type SpeechSynthesizer interface {
	SynthesizeSpeech(ctx context.Context, text, voiceID string, settings speech.Settings) (*models.AudioClip, error)
}

// AvatarRenderer is the avatar vendor as the pipeline uses it.
type AvatarRenderer interface {
	avatar.Poller
	CreateReplica(ctx context.Context, sourceURL, name, audioURL string) (avatar.ReplicaID, error)
	RenderVideo(ctx context.Context, replicaID avatar.ReplicaID, script string) (avatar.VideoJobID, error)
}

// Uploader stores a blob and returns a URL vendors and browsers can fetch.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Credentials are the per-vendor keys. An empty key disables that vendor.
type Credentials struct {
	ContentKey string
	SpeechKey  string
	AvatarKey  string
}

// ClientFactory builds vendor clients from credentials.
type ClientFactory interface {
	Content(ctx context.Context, key string) (llm.Generator, error)
	Speech(key string) SpeechSynthesizer
	Avatar(key string) AvatarRenderer
}

// Pipeline holds the configured vendor clients. It is safe for concurrent use.
type Pipeline struct {
	mu      sync.RWMutex
	content llm.Generator
	speech  SpeechSynthesizer
	avatar  AvatarRenderer

	uploader     Uploader
	factory      ClientFactory
	voices       speech.VoiceSet
	voice        speech.Settings
	pollInterval time.Duration
	pollTimeout  time.Duration
	newRand      func() *rand.Rand
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithContent sets the content generator.
func WithContent(g llm.Generator) Option { return func(p *Pipeline) { p.content = g } }

// WithSpeech sets the speech synthesizer.
func WithSpeech(s SpeechSynthesizer) Option { return func(p *Pipeline) { p.speech = s } }

// WithAvatar sets the avatar renderer.
func WithAvatar(a AvatarRenderer) Option { return func(p *Pipeline) { p.avatar = a } }

// WithUploader sets the object store used for portraits and voice clips.
func WithUploader(u Uploader) Option { return func(p *Pipeline) { p.uploader = u } }

// WithFactory sets the factory Configure uses.
func WithFactory(f ClientFactory) Option { return func(p *Pipeline) { p.factory = f } }

// WithVoices sets the voice ids per category.
func WithVoices(v speech.VoiceSet) Option { return func(p *Pipeline) { p.voices = v } }

// WithPolling sets the avatar poll cadence and overall timeout.
func WithPolling(interval, timeout time.Duration) Option {
	return func(p *Pipeline) {
		if interval > 0 {
			p.pollInterval = interval
		}
		if timeout > 0 {
			p.pollTimeout = timeout
		}
	}
}

// WithRandSource makes the avatar script choice reproducible.
func WithRandSource(newRand func() *rand.Rand) Option {
	return func(p *Pipeline) { p.newRand = newRand }
}

// New creates a pipeline. Vendors not supplied stay disabled until Configure.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		voice:        speech.DefaultSettings(),
		pollInterval: 5 * time.Second,
		pollTimeout:  5 * time.Minute,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Configure replaces the vendor clients from credentials. Empty keys disable the vendor.
func (p *Pipeline) Configure(ctx context.Context, creds Credentials) error {
	if p.factory == nil {
		return &ConfigurationError{Missing: "client factory"}
	}

	var content llm.Generator
	if creds.ContentKey != "" {
		g, err := p.factory.Content(ctx, creds.ContentKey)
		if err != nil {
			return fmt.Errorf("configure content: %w", err)
		}
		content = g
	}
	var tts SpeechSynthesizer
	if creds.SpeechKey != "" {
		tts = p.factory.Speech(creds.SpeechKey)
	}
	var av AvatarRenderer
	if creds.AvatarKey != "" {
		av = p.factory.Avatar(creds.AvatarKey)
	}

	p.mu.Lock()
	p.content, p.speech, p.avatar = content, tts, av
	p.mu.Unlock()

	log.Info().
		Bool("content", content != nil).
		Bool("speech", tts != nil).
		Bool("avatar", av != nil).
		Msg("Pipeline configured")
	return nil
}

// Content returns the current content generator, nil when not configured.
func (p *Pipeline) Content() llm.Generator {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.content
}

// Speech returns the current speech synthesizer, nil when not configured.
func (p *Pipeline) Speech() SpeechSynthesizer {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.speech
}

// Voices returns the configured voice set.
func (p *Pipeline) Voices() speech.VoiceSet {
	return p.voices
}

func (p *Pipeline) clients() (llm.Generator, SpeechSynthesizer, AvatarRenderer) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.content, p.speech, p.avatar
}
