package avatar

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Poller is the single-shot status call WaitForVideo repeats.
type Poller interface {
	PollVideo(ctx context.Context, jobID VideoJobID) (JobStatus, error)
}

// WaitForVideo polls jobID every interval until it is terminal or timeout elapses.
// The timeout bounds in-flight polls too and yields a poll_timeout Error.
// Cancelling ctx stops polling and returns ctx.Err().
func WaitForVideo(ctx context.Context, p Poller, jobID VideoJobID, interval, timeout time.Duration) (string, error) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	expired := func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return &Error{Kind: KindPollTimeout, Message: "gave up after " + timeout.String()}
	}

	polls := 0
	for {
		status, err := p.PollVideo(pollCtx, jobID)
		polls++
		switch {
		case err != nil:
			if pollCtx.Err() != nil {
				return "", expired()
			}
			log.Warn().Err(err).Str("video_id", string(jobID)).Int("polls", polls).Msg("Avatar poll failed")
		case status.State == StateDone:
			if status.VideoURL == "" {
				return "", &Error{Kind: KindFailed, Message: "job done without video url"}
			}
			log.Info().Str("video_id", string(jobID)).Int("polls", polls).Msg("Avatar video ready")
			return status.VideoURL, nil
		case status.State == StateFailed:
			return "", &Error{Kind: KindFailed, Message: "render job failed"}
		default:
			log.Debug().Str("video_id", string(jobID)).Str("state", string(status.State)).Msg("Avatar video pending")
		}

		select {
		case <-pollCtx.Done():
			return "", expired()
		case <-ticker.C:
		}
	}
}
