package pipeline

import (
	"context"
	"net/http"

	"github.com/snappy-loop/shadowtwin/internal/avatar"
	"github.com/snappy-loop/shadowtwin/internal/config"
	"github.com/snappy-loop/shadowtwin/internal/llm"
	"github.com/snappy-loop/shadowtwin/internal/speech"
)

// VendorFactory builds the real vendor clients from application config.
type VendorFactory struct {
	cfg        *config.Config
	httpClient *http.Client
}

// NewVendorFactory creates a factory sharing one HTTP client across the REST vendors.
func NewVendorFactory(cfg *config.Config) *VendorFactory {
	return &VendorFactory{cfg: cfg, httpClient: &http.Client{Timeout: cfg.VendorHTTPTimeout}}
}

// Content builds the configured content backend with key.
func (f *VendorFactory) Content(ctx context.Context, key string) (llm.Generator, error) {
	bc := llm.BackendConfig{
		Backend:     f.cfg.ContentBackend,
		APIKey:      key,
		Endpoint:    f.cfg.GeminiAPIEndpoint,
		Model:       f.cfg.GeminiModel,
		RPS:         f.cfg.ContentRPS,
		HTTPTimeout: f.cfg.VendorHTTPTimeout,
	}
	if bc.Backend == llm.BackendOpenAI {
		bc.Model = f.cfg.OpenAIModel
		bc.BaseURL = f.cfg.OpenAIBaseURL
	}
	return llm.NewGenerator(ctx, bc)
}

// Speech builds a speech client with key.
func (f *VendorFactory) Speech(key string) SpeechSynthesizer {
	return speech.NewClient(key, f.cfg.ElevenLabsEndpoint, f.cfg.ElevenLabsModel, f.httpClient)
}

// Avatar builds an avatar client with key.
func (f *VendorFactory) Avatar(key string) AvatarRenderer {
	return avatar.NewClient(key, f.cfg.TavusEndpoint, f.httpClient)
}

// CredentialsFromConfig returns the keys configured in the environment.
// The openai backend takes its key from OPENAI_API_KEY.
func CredentialsFromConfig(cfg *config.Config) Credentials {
	content := cfg.GeminiAPIKey
	if cfg.ContentBackend == llm.BackendOpenAI {
		content = cfg.OpenAIAPIKey
	}
	return Credentials{
		ContentKey: content,
		SpeechKey:  cfg.ElevenLabsAPIKey,
		AvatarKey:  cfg.TavusAPIKey,
	}
}

// VoicesFromConfig returns the configured voice ids.
func VoicesFromConfig(cfg *config.Config) speech.VoiceSet {
	return speech.VoiceSet{
		Creative:     cfg.VoiceCreative,
		Adventurous:  cfg.VoiceAdventurous,
		Professional: cfg.VoiceProfessional,
		Thoughtful:   cfg.VoiceThoughtful,
	}
}
