package llm

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// maxResponseLogBytes is the max length of a vendor response to log in full (to avoid huge logs).
const maxResponseLogBytes = 8192

// Generator produces raw text for a prompt. Callers parse the text themselves:
// batch stages expect a JSON array somewhere in it, chat expects prose.
type Generator interface {
	GenerateStructuredContent(ctx context.Context, prompt string, opts Options) (string, error)
}

// Options tunes one generation call. Zero TopK/TopP are omitted from the request.
type Options struct {
	Temperature     float64
	MaxOutputTokens int
	TopK            int
	TopP            float64
	System          string // optional system instruction
}

// StructuredOptions are the defaults for JSON-array batch prompts.
func StructuredOptions() Options {
	return Options{Temperature: 0.9, TopK: 40, TopP: 0.95, MaxOutputTokens: 2048}
}

// ChatOptions are the defaults for one conversational reply.
func ChatOptions(system string) Options {
	return Options{Temperature: 0.9, TopK: 40, TopP: 0.95, MaxOutputTokens: 200, System: system}
}

// pacer spaces out requests to a vendor. A nil limiter never waits.
type pacer struct {
	limiter *rate.Limiter
}

func newPacer(rps float64) pacer {
	if rps <= 0 {
		return pacer{}
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return pacer{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (p pacer) wait(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return &ContentError{Kind: KindUpstream, Message: "rate limiter", Err: err}
	}
	return nil
}

func checkPrompt(prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return &ContentError{Kind: KindMalformed, Message: "empty prompt"}
	}
	return nil
}

// emptyResponse builds the error returned when the vendor answered without candidate text.
func emptyResponse(reason string) error {
	if reason == "" {
		reason = "no candidate content returned"
	}
	return &ContentError{Kind: KindEmpty, Message: reason}
}

// logResponse logs vendor response text, truncating if over maxResponseLogBytes.
func logResponse(backend, raw string) {
	if len(raw) <= maxResponseLogBytes {
		log.Debug().Str("backend", backend).Str("content_response", raw).Msg("Content response")
		return
	}
	log.Debug().
		Str("backend", backend).
		Str("content_response", raw[:maxResponseLogBytes]+"... [truncated]").
		Int("content_response_len", len(raw)).
		Msg("Content response")
}
