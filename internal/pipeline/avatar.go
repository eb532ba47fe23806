package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode"

	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/shadowtwin/internal/avatar"
	"github.com/snappy-loop/shadowtwin/internal/models"
	"github.com/snappy-loop/shadowtwin/internal/script"
	"github.com/snappy-loop/shadowtwin/internal/storage"
)

// ImageError reports a portrait that cannot be sent to the avatar vendor.
type ImageError struct {
	ContentType string
}

func (e *ImageError) Error() string {
	if e.ContentType == "" {
		return "portrait image is empty"
	}
	return fmt.Sprintf("unsupported portrait type %q", e.ContentType)
}

// DetectImageType sniffs the portrait and accepts jpeg, png and webp.
func DetectImageType(image []byte) (string, error) {
	if len(image) == 0 {
		return "", &ImageError{}
	}
	ct := http.DetectContentType(image)
	switch ct {
	case "image/jpeg", "image/png", "image/webp":
		return ct, nil
	default:
		return "", &ImageError{ContentType: ct}
	}
}

// GenerateAvatarVideo uploads the portrait, creates a replica, renders the avatar script and
// polls until the video is ready. image falls back to in.Portrait when empty.
// Errors: ConfigurationError, ImageError, or *avatar.Error (including poll_timeout).
func (p *Pipeline) GenerateAvatarVideo(ctx context.Context, in models.SimulationInput, image []byte) (string, error) {
	_, _, av := p.clients()
	if av == nil {
		return "", &ConfigurationError{Missing: "avatar video"}
	}
	if p.uploader == nil {
		return "", &ConfigurationError{Missing: "object storage"}
	}
	if len(image) == 0 {
		image = in.Portrait
	}

	contentType, err := DetectImageType(image)
	if err != nil {
		return "", err
	}

	key := storage.ObjectKey("portraits", contentType)
	sourceURL, err := p.uploader.Upload(ctx, key, image, contentType)
	if err != nil {
		return "", &avatar.Error{Kind: avatar.KindCreate, Message: "upload portrait", Err: err}
	}

	replicaID, err := av.CreateReplica(ctx, sourceURL, replicaName(in.SubjectName), "")
	if err != nil {
		return "", err
	}

	text := script.AvatarScript(in, p.newRand())
	jobID, err := av.RenderVideo(ctx, replicaID, text)
	if err != nil {
		return "", err
	}

	log.Info().
		Str("replica_id", string(replicaID)).
		Str("video_id", string(jobID)).
		Dur("poll_interval", p.pollInterval).
		Dur("poll_timeout", p.pollTimeout).
		Msg("Waiting for avatar video")

	return avatar.WaitForVideo(ctx, av, jobID, p.pollInterval, p.pollTimeout)
}

// replicaName builds a vendor-safe replica name from the subject's name.
func replicaName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-' || r == '_':
			b.WriteRune('-')
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		slug = "anonymous"
	}
	return "twin-" + slug
}
