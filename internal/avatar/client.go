package avatar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrorKind tags the avatar step that failed
type ErrorKind string

const (
	KindCreate      ErrorKind = "create"
	KindRender      ErrorKind = "render"
	KindPollTimeout ErrorKind = "poll_timeout"
	KindFailed      ErrorKind = "failed"
	KindPoll        ErrorKind = "poll"
)

// Error is returned by every avatar operation
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("avatar %s: status %d: %s", e.Kind, e.StatusCode, msg)
	}
	return fmt.Sprintf("avatar %s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is an avatar Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}

type (
	ReplicaID  string
	VideoJobID string
)

// JobState is the normalized state of a render job
type JobState string

const (
	StateQueued     JobState = "queued"
	StateProcessing JobState = "processing"
	StateDone       JobState = "done"
	StateFailed     JobState = "failed"
)

// Terminal reports whether polling can stop.
func (s JobState) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// JobStatus is one poll result
type JobStatus struct {
	State    JobState
	VideoURL string
}

// normalizeState maps vendor status strings onto JobState.
func normalizeState(s string) JobState {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ready", "completed", "complete", "done":
		return StateDone
	case "failed", "error", "deleted":
		return StateFailed
	case "generating", "processing", "rendering", "started":
		return StateProcessing
	default:
		return StateQueued
	}
}

// Client calls a Tavus-style avatar video API.
type Client struct {
	apiKey     string
	baseURL    string // e.g. https://tavusapi.com/v2
	httpClient *http.Client
	background string
}

// NewClient creates an avatar client. A nil httpClient gets a 60s timeout.
func NewClient(apiKey, baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		background: "#1a1a2e",
	}
}

type createReplicaRequest struct {
	ReplicaName string `json:"replica_name"`
	VideoURL    string `json:"video_url"`
	AudioURL    string `json:"audio_url,omitempty"`
}

type createReplicaResponse struct {
	ReplicaID string `json:"replica_id"`
}

type renderProperties struct {
	BackgroundScroll bool `json:"background_scroll"`
	StartWithWave    bool `json:"start_with_wave"`
}

type renderVideoRequest struct {
	ReplicaID  string           `json:"replica_id"`
	Script     string           `json:"script"`
	Background string           `json:"background"`
	Properties renderProperties `json:"properties"`
}

type renderVideoResponse struct {
	VideoID string `json:"video_id"`
}

type videoStatusResponse struct {
	Status   string `json:"status"`
	VideoURL string `json:"video_url"`
	// some deployments report the finished asset as download_url
	DownloadURL string `json:"download_url"`
}

// CreateReplica registers a reusable avatar identity from a source media URL.
func (c *Client) CreateReplica(ctx context.Context, sourceURL, name, audioURL string) (ReplicaID, error) {
	if sourceURL == "" {
		return "", &Error{Kind: KindCreate, Message: "source url is empty"}
	}
	var out createReplicaResponse
	err := c.do(ctx, KindCreate, http.MethodPost, "/replicas",
		createReplicaRequest{ReplicaName: name, VideoURL: sourceURL, AudioURL: audioURL}, &out)
	if err != nil {
		return "", err
	}
	if out.ReplicaID == "" {
		return "", &Error{Kind: KindCreate, Message: "response missing replica_id"}
	}
	log.Info().Str("replica_id", out.ReplicaID).Msg("Avatar replica created")
	return ReplicaID(out.ReplicaID), nil
}

// RenderVideo starts a render job speaking script with the replica.
func (c *Client) RenderVideo(ctx context.Context, replicaID ReplicaID, script string) (VideoJobID, error) {
	if replicaID == "" {
		return "", &Error{Kind: KindRender, Message: "replica id is empty"}
	}
	var out renderVideoResponse
	err := c.do(ctx, KindRender, http.MethodPost, "/videos", renderVideoRequest{
		ReplicaID:  string(replicaID),
		Script:     script,
		Background: c.background,
		Properties: renderProperties{BackgroundScroll: false, StartWithWave: true},
	}, &out)
	if err != nil {
		return "", err
	}
	if out.VideoID == "" {
		return "", &Error{Kind: KindRender, Message: "response missing video_id"}
	}
	log.Info().Str("replica_id", string(replicaID)).Str("video_id", out.VideoID).Msg("Avatar render started")
	return VideoJobID(out.VideoID), nil
}

// PollVideo fetches the current state of a render job once.
func (c *Client) PollVideo(ctx context.Context, jobID VideoJobID) (JobStatus, error) {
	var out videoStatusResponse
	if err := c.do(ctx, KindPoll, http.MethodGet, "/videos/"+url.PathEscape(string(jobID)), nil, &out); err != nil {
		return JobStatus{}, err
	}
	status := JobStatus{State: normalizeState(out.Status), VideoURL: out.VideoURL}
	if status.VideoURL == "" {
		status.VideoURL = out.DownloadURL
	}
	return status, nil
}

func (c *Client) do(ctx context.Context, kind ErrorKind, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: kind, Message: "encode request", Err: err}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Kind: kind, Message: "build request", Err: err}
	}
	req.Header.Set("x-api-key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Kind: kind, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		log.Warn().Int("status", resp.StatusCode).Str("path", path).Msg("Avatar request rejected")
		return &Error{Kind: kind, StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Kind: kind, Message: "decode response", Err: err}
	}
	return nil
}
