package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account in the identity store
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Profile holds the user-facing profile shown on the dashboard
type Profile struct {
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Bio         string    `json:"bio"`
	AvatarURL   *string   `json:"avatar_url,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SimulationInput is the free-text form a user submits for one alternate-life simulation.
// Portrait is optional and only consumed by avatar video generation.
type SimulationInput struct {
	SubjectName        string `json:"subject_name"`
	CurrentLifeSummary string `json:"current_life_summary"`
	PastDecisions      string `json:"past_decisions"`
	UnpursuedDreams    string `json:"unpursued_dreams"`
	Portrait           []byte `json:"-"`
}

// TimelineEvent is one milestone of the alternate life, ordered by age ascending
type TimelineEvent struct {
	Age         int    `json:"age" jsonschema:"description=Age of the subject at the milestone"`
	Year        string `json:"year" jsonschema:"description=Calendar year of the milestone"`
	Title       string `json:"title" jsonschema:"description=Short milestone title"`
	Description string `json:"description" jsonschema:"description=Two or three sentences describing the milestone"`
}

// Network identifies the social network a generated post imitates
type Network string

const (
	NetworkInstagram Network = "instagram"
	NetworkLinkedIn  Network = "linkedin"
)

// SocialPost is a generated post from the alternate self's feed
type SocialPost struct {
	Network Network  `json:"platform" jsonschema:"enum=instagram,enum=linkedin"`
	Caption string   `json:"caption"`
	Tags    []string `json:"hashtags"`
	Likes   int      `json:"likes"`
	TimeAgo string   `json:"timeAgo" jsonschema:"description=Relative time such as 2h or 3d"`
}

// ComparisonRow contrasts one life dimension between the real and the alternate life
type ComparisonRow struct {
	Dimension string `json:"category"`
	Baseline  string `json:"realLife"`
	Alternate string `json:"alternateLife"`
}

// AudioClip is a synthesized audio payload. Data is set when the clip is held inline;
// URL is set when it was uploaded to object storage.
type AudioClip struct {
	ID       uuid.UUID `json:"id"`
	MimeType string    `json:"mime_type"`
	Size     int64     `json:"size"`
	Data     []byte    `json:"data,omitempty"`
	URL      string    `json:"url,omitempty"`
	Text     string    `json:"text,omitempty"`
}

// Speaker identifies who authored a conversation turn
type Speaker string

const (
	SpeakerUser Speaker = "user"
	SpeakerTwin Speaker = "twin"
)

// ConversationTurn is one message in a conversation transcript
type ConversationTurn struct {
	ID        uuid.UUID  `json:"id"`
	Speaker   Speaker    `json:"speaker"`
	Text      string     `json:"text"`
	CreatedAt time.Time  `json:"created_at"`
	Audio     *AudioClip `json:"audio,omitempty"`
}

// Stage is one independently-failable unit of work in the simulation pipeline
type Stage string

const (
	StageContent    Stage = "content"
	StageTimeline   Stage = "timeline"
	StagePosts      Stage = "posts"
	StageComparison Stage = "comparison"
	StageVoice      Stage = "voice"
	StageAvatar     Stage = "avatar"
)

// StageError records why a stage could not produce (real) output
type StageError struct {
	Stage   Stage  `json:"stage"`
	Message string `json:"message"`
}

// PipelineResult aggregates everything one simulation run produced.
// A nil slice means the producing stage did not run or did not complete.
type PipelineResult struct {
	Timeline   []TimelineEvent `json:"timeline,omitempty"`
	Posts      []SocialPost    `json:"posts,omitempty"`
	Comparison []ComparisonRow `json:"comparison,omitempty"`
	VoiceClips []AudioClip     `json:"voice_clips,omitempty"`
	VideoURL   *string         `json:"video_url,omitempty"`
	Errors     []StageError    `json:"errors"`
}

// HasError reports whether an error entry exists for stage
func (r *PipelineResult) HasError(stage Stage) bool {
	for _, e := range r.Errors {
		if e.Stage == stage {
			return true
		}
	}
	return false
}

// StageStatus is the progress state carried by a StageEvent
type StageStatus string

const (
	StageStarted   StageStatus = "started"
	StageSucceeded StageStatus = "succeeded"
	StageFallback  StageStatus = "fallback"
	StageFailed    StageStatus = "failed"
	StageSkipped   StageStatus = "skipped"
)

// StageEvent is emitted as each pipeline stage starts or resolves
type StageEvent struct {
	SimulationID uuid.UUID   `json:"simulation_id"`
	Stage        Stage       `json:"stage"`
	Status       StageStatus `json:"status"`
	Message      string      `json:"message,omitempty"`
	At           time.Time   `json:"at"`
}

// Simulation is a persisted simulation run owned by a user
type Simulation struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	State     string          `json:"state"` // intro, collecting, generating, presenting
	Input     SimulationInput `json:"input"`
	Result    *PipelineResult `json:"result,omitempty"`
	VideoURL  *string         `json:"video_url,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// SignUpRequest is the body of POST /auth/signup and /auth/signin
type SignUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned after a successful sign up or sign in
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

// UpdateProfileRequest is the body of PUT /v1/profile
type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name,omitempty"`
	Bio         *string `json:"bio,omitempty"`
}

// CreateConversationRequest starts a chat session, either from a stored simulation or an inline input
type CreateConversationRequest struct {
	SimulationID *uuid.UUID      `json:"simulation_id,omitempty"`
	Input        SimulationInput `json:"input"`
}

// CreateConversationResponse identifies the new chat session
type CreateConversationResponse struct {
	ConversationID uuid.UUID `json:"conversation_id"`
}

// SubmitTurnRequest is the body of POST /v1/conversations/{id}/turns
type SubmitTurnRequest struct {
	Text string `json:"text"`
}

// AvatarVideoResponse is returned by POST /v1/simulations/{id}/avatar
type AvatarVideoResponse struct {
	VideoURL string `json:"video_url"`
}
