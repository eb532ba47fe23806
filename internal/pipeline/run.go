package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/shadowtwin/internal/llm"
	"github.com/snappy-loop/shadowtwin/internal/models"
	"github.com/snappy-loop/shadowtwin/internal/script"
	"github.com/snappy-loop/shadowtwin/internal/storage"
	"golang.org/x/sync/errgroup"
)

// ProgressFunc receives stage events as they happen. Calls are serialized.
type ProgressFunc func(models.StageEvent)

// recorder owns the mutable parts of one run shared across stage goroutines.
type recorder struct {
	mu       sync.Mutex
	result   *models.PipelineResult
	progress ProgressFunc
}

func (r *recorder) fail(stage models.Stage, message string) {
	r.mu.Lock()
	r.result.Errors = append(r.result.Errors, models.StageError{Stage: stage, Message: message})
	r.mu.Unlock()
}

func (r *recorder) emit(stage models.Stage, status models.StageStatus, message string) {
	if r.progress == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress(models.StageEvent{Stage: stage, Status: status, Message: message, At: time.Now()})
}

// Run executes the content and voice stages for one input. It always returns a result.
func (p *Pipeline) Run(ctx context.Context, in models.SimulationInput) *models.PipelineResult {
	return p.RunWithProgress(ctx, in, nil)
}

// RunWithProgress is Run with a callback for each stage transition.
func (p *Pipeline) RunWithProgress(ctx context.Context, in models.SimulationInput, progress ProgressFunc) *models.PipelineResult {
	content, tts, _ := p.clients()
	rec := &recorder{
		result:   &models.PipelineResult{Errors: []models.StageError{}},
		progress: progress,
	}
	res := rec.result
	start := time.Now()

	// Stage goroutines never return errors; each writes only its own result field.
	var g errgroup.Group

	if content == nil {
		rec.fail(models.StageContent, "not configured")
		for _, s := range []models.Stage{models.StageTimeline, models.StagePosts, models.StageComparison} {
			rec.emit(s, models.StageSkipped, "content generation not configured")
		}
	} else {
		g.Go(func() error {
			res.Timeline = runContentStage(ctx, rec, content, models.StageTimeline,
				script.TimelinePrompt(in), normalizeTimeline, func() []models.TimelineEvent { return FallbackTimeline(in) })
			return nil
		})
		g.Go(func() error {
			res.Posts = runContentStage(ctx, rec, content, models.StagePosts,
				script.SocialPostsPrompt(in), normalizePosts, func() []models.SocialPost { return FallbackPosts(in) })
			return nil
		})
		g.Go(func() error {
			res.Comparison = runContentStage(ctx, rec, content, models.StageComparison,
				script.ComparisonPrompt(in), normalizeComparison, func() []models.ComparisonRow { return FallbackComparison(in) })
			return nil
		})
	}

	if tts == nil {
		rec.emit(models.StageVoice, models.StageSkipped, "speech synthesis not configured")
	} else {
		g.Go(func() error {
			res.VoiceClips = p.runVoiceStage(ctx, rec, tts, in)
			return nil
		})
	}

	_ = g.Wait()

	log.Info().
		Int("timeline", len(res.Timeline)).
		Int("posts", len(res.Posts)).
		Int("comparison", len(res.Comparison)).
		Int("voice_clips", len(res.VoiceClips)).
		Int("errors", len(res.Errors)).
		Dur("duration", time.Since(start)).
		Msg("Simulation pipeline finished")
	return res
}

// runContentStage generates, extracts and validates one batch section, substituting the
// fallback on any vendor or parse failure. Vendor failures are recorded under the content
// stage, parse failures under the section's own stage.
func runContentStage[T any](
	ctx context.Context,
	rec *recorder,
	gen llm.Generator,
	stage models.Stage,
	prompt string,
	normalize func([]T) []T,
	fallback func() []T,
) []T {
	rec.emit(stage, models.StageStarted, "")

	raw, err := gen.GenerateStructuredContent(ctx, prompt, llm.StructuredOptions())
	if err != nil {
		msg := fmt.Sprintf("%s: %v", stage, err)
		log.Warn().Err(err).Str("stage", string(stage)).Msg("Content generation failed, using fallback")
		rec.fail(models.StageContent, msg)
		rec.emit(stage, models.StageFallback, msg)
		return fallback()
	}

	items, err := llm.DecodeArray[T](raw)
	if err == nil {
		items = normalize(items)
		if len(items) == 0 {
			err = llm.ErrEmptyArray
		}
	}
	if err != nil {
		msg := fmt.Sprintf("%s: %v", stage, err)
		log.Warn().Err(err).Str("stage", string(stage)).Msg("Content response unusable, using fallback")
		rec.fail(stage, msg)
		rec.emit(stage, models.StageFallback, msg)
		return fallback()
	}

	rec.emit(stage, models.StageSucceeded, fmt.Sprintf("%d items", len(items)))
	return items
}

// normalizeTimeline drops untitled events, sorts by age and caps the count.
func normalizeTimeline(events []models.TimelineEvent) []models.TimelineEvent {
	out := make([]models.TimelineEvent, 0, len(events))
	for _, e := range events {
		if strings.TrimSpace(e.Title) == "" {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Age < out[j].Age })
	if len(out) > script.TimelineCount {
		out = out[:script.TimelineCount]
	}
	return out
}

func normalizePosts(posts []models.SocialPost) []models.SocialPost {
	out := make([]models.SocialPost, 0, len(posts))
	for _, p := range posts {
		if strings.TrimSpace(p.Caption) == "" {
			continue
		}
		p.Network = models.Network(strings.ToLower(strings.TrimSpace(string(p.Network))))
		if p.Network != models.NetworkLinkedIn {
			p.Network = models.NetworkInstagram
		}
		p.Caption = script.TruncateGraphemes(p.Caption, script.MaxCaptionGraphemes)
		tags := make([]string, 0, len(p.Tags))
		for _, t := range p.Tags {
			if t = strings.TrimPrefix(strings.TrimSpace(t), "#"); t != "" {
				tags = append(tags, t)
			}
		}
		p.Tags = tags
		if p.Likes < 0 {
			p.Likes = 0
		}
		out = append(out, p)
	}
	if len(out) > script.PostsCount {
		out = out[:script.PostsCount]
	}
	return out
}

func normalizeComparison(rows []models.ComparisonRow) []models.ComparisonRow {
	out := make([]models.ComparisonRow, 0, len(rows))
	for _, r := range rows {
		if strings.TrimSpace(r.Dimension) == "" {
			continue
		}
		out = append(out, r)
	}
	if len(out) > script.ComparisonCount {
		out = out[:script.ComparisonCount]
	}
	return out
}

// runVoiceStage synthesizes the narrative lines concurrently. A failed line is dropped and
// recorded; the surviving clips keep line order. Returns nil when no clip survived.
func (p *Pipeline) runVoiceStage(ctx context.Context, rec *recorder, tts SpeechSynthesizer, in models.SimulationInput) []models.AudioClip {
	rec.emit(models.StageVoice, models.StageStarted, "")

	lines := script.NarrativeLines(in)
	voiceID := p.voices.VoiceFor(in.UnpursuedDreams, in.PastDecisions)
	clips := make([]*models.AudioClip, len(lines))

	var g errgroup.Group
	for i, line := range lines {
		g.Go(func() error {
			clip, err := tts.SynthesizeSpeech(ctx, line, voiceID, p.voice)
			if err != nil {
				rec.fail(models.StageVoice, fmt.Sprintf("line %d: %v", i+1, err))
				return nil
			}
			if p.uploader != nil {
				key := storage.ObjectKey("voice", clip.MimeType)
				url, err := p.uploader.Upload(ctx, key, clip.Data, clip.MimeType)
				if err != nil {
					// keep the clip inline rather than dropping audio that was produced
					log.Warn().Err(err).Str("key", key).Msg("Voice clip upload failed")
				} else {
					clip.URL = url
					clip.Data = nil
				}
			}
			clips[i] = clip
			return nil
		})
	}
	_ = g.Wait()

	var out []models.AudioClip
	for _, c := range clips {
		if c != nil {
			out = append(out, *c)
		}
	}

	switch {
	case len(out) == 0:
		rec.emit(models.StageVoice, models.StageFailed, "no clips synthesized")
	case len(out) < len(lines):
		rec.emit(models.StageVoice, models.StageSucceeded, fmt.Sprintf("%d of %d clips", len(out), len(lines)))
	default:
		rec.emit(models.StageVoice, models.StageSucceeded, fmt.Sprintf("%d clips", len(out)))
	}
	return out
}
