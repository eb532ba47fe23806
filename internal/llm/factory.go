package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Backend names accepted by NewGenerator.
const (
	BackendREST      = "rest"
	BackendGenAI     = "genai"
	BackendLangChain = "langchain"
	BackendOpenAI    = "openai"
)

// ErrMissingKey is returned when a backend is requested without an API key.
var ErrMissingKey = errors.New("content generation api key not set")

// BackendConfig selects and configures one Generator backend.
type BackendConfig struct {
	Backend     string
	APIKey      string
	Endpoint    string // REST endpoint; also the genai base URL once the version suffix is stripped
	Model       string
	BaseURL     string // openai only
	RPS         float64
	HTTPTimeout time.Duration
}

// NewGenerator builds the configured backend. An empty Backend means rest.
func NewGenerator(ctx context.Context, bc BackendConfig) (Generator, error) {
	if bc.APIKey == "" {
		return nil, ErrMissingKey
	}
	switch bc.Backend {
	case "", BackendREST:
		opts := []ClientOption{WithRateLimit(bc.RPS)}
		if bc.HTTPTimeout > 0 {
			opts = append(opts, WithHTTPClient(&http.Client{Timeout: bc.HTTPTimeout}))
		}
		return NewClient(bc.APIKey, bc.Endpoint, bc.Model, opts...), nil
	case BackendGenAI:
		base := ""
		if bc.Endpoint != "" {
			base = genaiBaseURL(bc.Endpoint)
		}
		return NewGenAIGenerator(ctx, bc.APIKey, base, bc.Model, bc.RPS)
	case BackendLangChain:
		return NewLangChainGenerator(ctx, bc.APIKey, bc.Model, bc.RPS)
	case BackendOpenAI:
		return NewOpenAIGenerator(bc.APIKey, bc.BaseURL, bc.Model, bc.RPS), nil
	default:
		return nil, fmt.Errorf("unknown content backend %q", bc.Backend)
	}
}
