package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/shadowtwin/internal/models"
)

// maxAudioBytes bounds a single synthesized clip.
const maxAudioBytes = 20 * 1024 * 1024

// Settings are the per-request voice settings. Values are clamped to [0,1].
type Settings struct {
	Stability       float64
	SimilarityBoost float64
	Style           *float64
	SpeakerBoost    bool
}

// DefaultSettings are used for narrative clips and chat replies.
func DefaultSettings() Settings {
	style := 0.5
	return Settings{Stability: 0.5, SimilarityBoost: 0.75, Style: &style, SpeakerBoost: true}
}

// SynthesisError wraps a non-2xx response from the speech vendor
type SynthesisError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *SynthesisError) Error() string {
	if e.StatusCode == 0 {
		return "speech synthesis: " + e.Message
	}
	return fmt.Sprintf("speech synthesis: status %d: %s", e.StatusCode, e.Message)
}

// Client calls an ElevenLabs-compatible text-to-speech endpoint.
type Client struct {
	apiKey     string
	endpoint   string // e.g. https://api.elevenlabs.io/v1/text-to-speech
	model      string
	httpClient *http.Client
}

// NewClient creates a speech synthesis client. A nil httpClient gets a 60s timeout.
func NewClient(apiKey, endpoint, model string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		apiKey:     apiKey,
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		model:      model,
		httpClient: httpClient,
	}
}

type voiceSettings struct {
	Stability       float64  `json:"stability"`
	SimilarityBoost float64  `json:"similarity_boost"`
	Style           *float64 `json:"style,omitempty"`
	UseSpeakerBoost bool     `json:"use_speaker_boost"`
}

type synthesisRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// SynthesizeSpeech converts text to audio with the given voice. No retry is attempted.
func (c *Client) SynthesizeSpeech(ctx context.Context, text, voiceID string, settings Settings) (*models.AudioClip, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &SynthesisError{Message: "empty text"}
	}
	if voiceID == "" {
		return nil, &SynthesisError{Message: "empty voice id"}
	}

	vs := voiceSettings{
		Stability:       clamp01(settings.Stability),
		SimilarityBoost: clamp01(settings.SimilarityBoost),
		UseSpeakerBoost: settings.SpeakerBoost,
	}
	if settings.Style != nil {
		style := clamp01(*settings.Style)
		vs.Style = &style
	}

	payload, err := json.Marshal(synthesisRequest{Text: text, ModelID: c.model, VoiceSettings: vs})
	if err != nil {
		return nil, fmt.Errorf("encode synthesis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/"+url.PathEscape(voiceID), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build synthesis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &SynthesisError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		log.Warn().Int("status", resp.StatusCode).Str("voice_id", voiceID).Msg("Speech synthesis rejected")
		return nil, &SynthesisError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       string(body),
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return nil, &SynthesisError{Message: "read audio: " + err.Error()}
	}
	if len(data) == 0 {
		return nil, &SynthesisError{StatusCode: resp.StatusCode, Message: "empty audio payload"}
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" || strings.HasPrefix(mimeType, "application/json") {
		mimeType = "audio/mpeg"
	}

	log.Debug().
		Str("voice_id", voiceID).
		Int("text_length", len(text)).
		Int("audio_size", len(data)).
		Msg("Speech synthesized")

	return &models.AudioClip{
		ID:       uuid.New(),
		MimeType: mimeType,
		Size:     int64(len(data)),
		Data:     data,
		Text:     text,
	}, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
