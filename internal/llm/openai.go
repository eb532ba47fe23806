package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/rs/zerolog/log"
)

// OpenAIGenerator generates content through the OpenAI Responses API.
// TopK has no equivalent there and is ignored.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
	pace   pacer
}

// NewOpenAIGenerator creates an OpenAI-backed generator. baseURL is optional.
func NewOpenAIGenerator(apiKey, baseURL, model string, rps float64) *OpenAIGenerator {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	log.Info().Str("model", model).Str("base_url", baseURL).Msg("OpenAI content client initialized")
	return &OpenAIGenerator{client: &client, model: model, pace: newPacer(rps)}
}

// GenerateStructuredContent implements Generator.
func (g *OpenAIGenerator) GenerateStructuredContent(ctx context.Context, prompt string, opts Options) (string, error) {
	if err := checkPrompt(prompt); err != nil {
		return "", err
	}
	if err := g.pace.wait(ctx); err != nil {
		return "", err
	}

	params := responses.ResponseNewParams{
		Model:       g.model,
		Temperature: openai.Float(opts.Temperature),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(prompt),
		},
	}
	if opts.MaxOutputTokens > 0 {
		params.MaxOutputTokens = openai.Int(int64(opts.MaxOutputTokens))
	}
	if opts.TopP > 0 {
		params.TopP = openai.Float(opts.TopP)
	}
	if opts.System != "" {
		params.Instructions = openai.String(opts.System)
	}

	resp, err := g.client.Responses.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			ce := classifyStatus(apiErr.StatusCode, apiErr.Error())
			ce.Err = err
			return "", ce
		}
		return "", classifyMessage(err)
	}

	text := resp.OutputText()
	if strings.TrimSpace(text) == "" {
		return "", emptyResponse("")
	}
	logResponse("openai", text)
	return text, nil
}
