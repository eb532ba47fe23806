package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// GenAIGenerator generates content through the unified Google GenAI SDK.
type GenAIGenerator struct {
	client *genai.Client
	model  string
	pace   pacer
}

// NewGenAIGenerator creates an SDK-backed generator. baseURL is optional; when set it must be
// the API root without a version suffix (e.g. http://host.docker.internal:31300/gemini).
func NewGenAIGenerator(ctx context.Context, apiKey, baseURL, model string, rps float64) (*GenAIGenerator, error) {
	cfg := &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init genai client: %w", err)
	}
	log.Info().Str("model", model).Str("base_url", baseURL).Msg("GenAI content client initialized")
	return &GenAIGenerator{client: client, model: model, pace: newPacer(rps)}, nil
}

// GenerateStructuredContent implements Generator.
func (g *GenAIGenerator) GenerateStructuredContent(ctx context.Context, prompt string, opts Options) (string, error) {
	if err := checkPrompt(prompt); err != nil {
		return "", err
	}
	if err := g.pace.wait(ctx); err != nil {
		return "", err
	}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(opts.Temperature)),
		MaxOutputTokens: int32(opts.MaxOutputTokens),
	}
	if opts.TopK > 0 {
		config.TopK = genai.Ptr(float32(opts.TopK))
	}
	if opts.TopP > 0 {
		config.TopP = genai.Ptr(float32(opts.TopP))
	}
	if opts.System != "" {
		config.SystemInstruction = genai.NewContentFromText(opts.System, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			ce := classifyStatus(apiErr.Code, apiErr.Message)
			ce.Err = err
			return "", ce
		}
		return "", classifyMessage(err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", emptyResponse("")
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", emptyResponse("")
	}
	logResponse("genai", text)
	return text, nil
}

// genaiBaseURL strips an API version suffix so a REST-style endpoint can be reused by the SDK.
func genaiBaseURL(endpoint string) string {
	endpoint = strings.TrimSuffix(endpoint, "/")
	for _, suffix := range []string{"/v1beta", "/v1alpha", "/v1"} {
		if strings.HasSuffix(endpoint, suffix) {
			return strings.TrimSuffix(endpoint, suffix)
		}
	}
	return endpoint
}
