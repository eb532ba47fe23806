package llm

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

	"github.com/rs/zerolog/log"
)

// maxErrorBodyBytes bounds how much of an error response is read for the message.
const maxErrorBodyBytes = 4096

// Client calls the Gemini generateContent REST endpoint directly.
type Client struct {
	apiKey     string
	endpoint   string // e.g. https://generativelanguage.googleapis.com/v1beta
	model      string
	httpClient *http.Client
	pace       pacer
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client (e.g. to point tests at httptest).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRateLimit paces requests to at most rps per second. rps <= 0 disables pacing.
func WithRateLimit(rps float64) ClientOption {
	return func(c *Client) {
		c.pace = newPacer(rps)
	}
}

// NewClient creates a REST content generation client.
func NewClient(apiKey, endpoint, model string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:     apiKey,
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	log.Info().
		Str("endpoint", c.endpoint).
		Str("model", c.model).
		Bool("paced", c.pace.limiter != nil).
		Msg("Content client initialized")
	return c
}

type restPart struct {
	Text string `json:"text"`
}

type restContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []restPart `json:"parts"`
}

type restGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK,omitempty"`
	TopP            float64 `json:"topP,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type restRequest struct {
	Contents          []restContent        `json:"contents"`
	SystemInstruction *restContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  restGenerationConfig `json:"generationConfig"`
}

type restResponse struct {
	Candidates []struct {
		Content      *restContent `json:"content"`
		FinishReason string       `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

type restErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// GenerateStructuredContent sends one prompt and returns the first candidate's first text part.
func (c *Client) GenerateStructuredContent(ctx context.Context, prompt string, opts Options) (string, error) {
	if err := checkPrompt(prompt); err != nil {
		return "", err
	}
	if err := c.pace.wait(ctx); err != nil {
		return "", err
	}

	reqBody := restRequest{
		Contents: []restContent{{Parts: []restPart{{Text: prompt}}}},
		GenerationConfig: restGenerationConfig{
			Temperature:     opts.Temperature,
			TopK:            opts.TopK,
			TopP:            opts.TopP,
			MaxOutputTokens: opts.MaxOutputTokens,
		},
	}
	if opts.System != "" {
		reqBody.SystemInstruction = &restContent{Parts: []restPart{{Text: opts.System}}}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", &ContentError{Kind: KindMalformed, Message: "encode request", Err: err}
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		c.endpoint, url.PathEscape(c.model), url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", &ContentError{Kind: KindMalformed, Message: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	log.Debug().
		Str("model", c.model).
		Int("prompt_length", len(prompt)).
		Int("max_output_tokens", opts.MaxOutputTokens).
		Msg("Calling content generation")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &ContentError{Kind: KindUpstream, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		message := strings.TrimSpace(string(body))
		var eb restErrorBody
		if json.Unmarshal(body, &eb) == nil && eb.Error.Message != "" {
			message = eb.Error.Message
		}
		ce := classifyStatus(resp.StatusCode, message)
		log.Warn().
			Int("status", resp.StatusCode).
			Str("kind", string(ce.Kind)).
			Msg("Content generation rejected")
		return "", ce
	}

	var parsed restResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", &ContentError{Kind: KindEmpty, Message: "decode response", Err: err}
	}

	if len(parsed.Candidates) == 0 || parsed.Candidates[0].Content == nil || len(parsed.Candidates[0].Content.Parts) == 0 {
		reason := ""
		if parsed.PromptFeedback != nil && parsed.PromptFeedback.BlockReason != "" {
			reason = "prompt blocked: " + parsed.PromptFeedback.BlockReason
		}
		return "", emptyResponse(reason)
	}

	text := parsed.Candidates[0].Content.Parts[0].Text
	if strings.TrimSpace(text) == "" {
		return "", emptyResponse("")
	}
	logResponse("rest", text)
	return text, nil
}
