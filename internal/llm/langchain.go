package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
)

// LangChainGenerator generates content through a langchaingo model.
type LangChainGenerator struct {
	model llms.Model
	name  string
	pace  pacer
}

// NewLangChainGenerator wraps a Google AI model via langchaingo.
func NewLangChainGenerator(ctx context.Context, apiKey, model string, rps float64) (*LangChainGenerator, error) {
	m, err := googleai.New(ctx, googleai.WithAPIKey(apiKey), googleai.WithDefaultModel(model))
	if err != nil {
		return nil, fmt.Errorf("init langchaingo googleai: %w", err)
	}
	log.Info().Str("model", model).Msg("LangChain content client initialized")
	return NewLangChainGeneratorFromModel(m, model, rps), nil
}

// NewLangChainGeneratorFromModel wraps any llms.Model.
func NewLangChainGeneratorFromModel(m llms.Model, name string, rps float64) *LangChainGenerator {
	return &LangChainGenerator{model: m, name: name, pace: newPacer(rps)}
}

// GenerateStructuredContent implements Generator.
func (g *LangChainGenerator) GenerateStructuredContent(ctx context.Context, prompt string, opts Options) (string, error) {
	if err := checkPrompt(prompt); err != nil {
		return "", err
	}
	if err := g.pace.wait(ctx); err != nil {
		return "", err
	}

	var messages []llms.MessageContent
	if opts.System != "" {
		messages = append(messages, llms.MessageContent{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextContent{Text: opts.System}},
		})
	}
	messages = append(messages, llms.MessageContent{
		Role:  llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.TextContent{Text: prompt}},
	})

	callOpts := []llms.CallOption{llms.WithTemperature(opts.Temperature)}
	if opts.MaxOutputTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(opts.MaxOutputTokens))
	}
	if opts.TopK > 0 {
		callOpts = append(callOpts, llms.WithTopK(opts.TopK))
	}
	if opts.TopP > 0 {
		callOpts = append(callOpts, llms.WithTopP(opts.TopP))
	}

	resp, err := g.model.GenerateContent(ctx, messages, callOpts...)
	if err != nil {
		return "", classifyMessage(err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", emptyResponse("")
	}

	text := resp.Choices[0].Content
	if strings.TrimSpace(text) == "" {
		return "", emptyResponse("")
	}
	logResponse("langchain", text)
	return text, nil
}
