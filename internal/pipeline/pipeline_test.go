package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/snappy-loop/shadowtwin/internal/llm"
	"github.com/snappy-loop/shadowtwin/internal/models"
	"github.com/snappy-loop/shadowtwin/internal/speech"
)

// stubGenerator answers by prompt content; respond defaults to an auth failure.
type stubGenerator struct {
	respond func(prompt string) (string, error)
}

func (s *stubGenerator) GenerateStructuredContent(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	return s.respond(prompt)
}

func fixed(text string, err error) *stubGenerator {
	return &stubGenerator{respond: func(string) (string, error) { return text, err }}
}

// fakeSpeech fails for any text containing failOn.
type fakeSpeech struct {
	mu     sync.Mutex
	failOn string
	voices []string
}

func (f *fakeSpeech) SynthesizeSpeech(ctx context.Context, text, voiceID string, s speech.Settings) (*models.AudioClip, error) {
	f.mu.Lock()
	f.voices = append(f.voices, voiceID)
	f.mu.Unlock()
	if f.failOn != "" && strings.Contains(text, f.failOn) {
		return nil, &speech.SynthesisError{StatusCode: 500, Message: "boom"}
	}
	return &models.AudioClip{ID: uuid.New(), MimeType: "audio/mpeg", Data: []byte(text), Size: int64(len(text)), Text: text}, nil
}

type fakeUploader struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (f *fakeUploader) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.mu.Lock()
	f.keys = append(f.keys, key)
	f.mu.Unlock()
	return "https://cdn.example/" + key, nil
}

var alex = models.SimulationInput{
	SubjectName:        "Alex",
	CurrentLifeSummary: "Accountant in Ohio",
	PastDecisions:      "Took the stable job",
	UnpursuedDreams:    "photography in Barcelona",
}

const timelineReply = `Here you go: [{"age":22,"title":"Moved abroad","description":"...","year":"2018"}]`

func isTimelinePrompt(p string) bool   { return strings.Contains(p, `"age"`) }
func isPostsPrompt(p string) bool      { return strings.Contains(p, `"platform"`) }
func isComparisonPrompt(p string) bool { return strings.Contains(p, `"alternateLife"`) }

func TestRun_ParsesTimelineFromProse(t *testing.T) {
	gen := &stubGenerator{respond: func(p string) (string, error) {
		switch {
		case isTimelinePrompt(p):
			return timelineReply, nil
		case isPostsPrompt(p):
			return `[{"platform":"instagram","caption":"Golden hour","hashtags":["#film"],"likes":120,"timeAgo":"2h"}]`, nil
		default:
			return `[{"category":"Career","realLife":"Accounting","alternateLife":"Photography"}]`, nil
		}
	}}
	p := New(WithContent(gen))

	res := p.Run(context.Background(), alex)

	if len(res.Timeline) != 1 || res.Timeline[0].Age != 22 || res.Timeline[0].Title != "Moved abroad" {
		t.Fatalf("timeline = %+v", res.Timeline)
	}
	if len(res.Errors) != 0 {
		t.Errorf("errors = %+v", res.Errors)
	}
	if len(res.Posts) != 1 || res.Posts[0].Tags[0] != "film" {
		t.Errorf("posts = %+v", res.Posts)
	}
	if len(res.Comparison) != 1 {
		t.Errorf("comparison = %+v", res.Comparison)
	}
	if res.VoiceClips != nil || res.VideoURL != nil {
		t.Error("voice and video should stay unset")
	}
}

func TestRun_AuthErrorFallsBack(t *testing.T) {
	authErr := &llm.ContentError{Kind: llm.KindAuth, StatusCode: 403, Message: "API key not valid"}
	p := New(WithContent(fixed("", authErr)))

	res := p.Run(context.Background(), alex)

	want := FallbackTimeline(alex)
	if len(res.Timeline) == 0 || res.Timeline[0] != want[0] {
		t.Errorf("timeline should be the deterministic fallback, got %+v", res.Timeline)
	}
	var timelineErrs int
	for _, e := range res.Errors {
		if e.Stage != models.StageContent {
			t.Errorf("vendor failure recorded under %q", e.Stage)
		}
		if !strings.Contains(e.Message, "auth") {
			t.Errorf("message %q does not mention auth", e.Message)
		}
		if strings.HasPrefix(e.Message, "timeline:") {
			timelineErrs++
		}
	}
	if timelineErrs != 1 {
		t.Errorf("timeline error entries = %d, want 1", timelineErrs)
	}
	if len(res.Errors) != 3 {
		t.Errorf("errors = %d, want one per batch stage", len(res.Errors))
	}
}

func TestRun_ProseWithoutArrayFallsBack(t *testing.T) {
	p := New(WithContent(fixed("I'm sorry, I can't produce that list right now.", nil)))

	res := p.Run(context.Background(), alex)

	if len(res.Timeline) == 0 || len(res.Posts) == 0 || len(res.Comparison) == 0 {
		t.Fatalf("every section should be populated: %+v", res)
	}
	for _, stage := range []models.Stage{models.StageTimeline, models.StagePosts, models.StageComparison} {
		if !res.HasError(stage) {
			t.Errorf("missing parse error for %s", stage)
		}
	}
	again := p.Run(context.Background(), alex)
	if fmt.Sprint(again.Timeline) != fmt.Sprint(res.Timeline) || fmt.Sprint(again.Posts) != fmt.Sprint(res.Posts) {
		t.Error("fallback is not deterministic")
	}
}

func TestRun_EmptyArrayFallsBack(t *testing.T) {
	p := New(WithContent(fixed("[]", nil)))
	res := p.Run(context.Background(), alex)
	if len(res.Timeline) == 0 || !res.HasError(models.StageTimeline) {
		t.Errorf("empty array should fall back with an error: %+v", res)
	}
}

func TestRun_NotConfigured(t *testing.T) {
	var events []models.StageEvent
	res := New().RunWithProgress(context.Background(), alex, func(e models.StageEvent) {
		events = append(events, e)
	})

	if len(res.Errors) != 1 || res.Errors[0].Stage != models.StageContent || res.Errors[0].Message != "not configured" {
		t.Fatalf("errors = %+v", res.Errors)
	}
	if res.Timeline != nil || res.Posts != nil || res.Comparison != nil {
		t.Error("sections should stay unset without a content credential")
	}
	skipped := 0
	for _, e := range events {
		if e.Status == models.StageSkipped {
			skipped++
		}
	}
	if skipped != 4 {
		t.Errorf("skipped events = %d, want 4 (three content stages and voice)", skipped)
	}
}

func TestRun_EverySectionPopulatedOrErrored(t *testing.T) {
	responses := []struct {
		text string
		err  error
	}{
		{timelineReply, nil},
		{"no json here", nil},
		{`[{"broken":`, nil},
		{"", &llm.ContentError{Kind: llm.KindQuota}},
		{"", &llm.ContentError{Kind: llm.KindEmpty}},
		{"```json\n[{\"age\":30,\"title\":\"x\"}]\n```", nil},
	}
	for i, r := range responses {
		res := New(WithContent(fixed(r.text, r.err))).Run(context.Background(), alex)
		if len(res.Timeline) == 0 && !res.HasError(models.StageTimeline) && !res.HasError(models.StageContent) {
			t.Errorf("case %d: timeline empty and error-free", i)
		}
		if len(res.Posts) == 0 || len(res.Comparison) == 0 {
			t.Errorf("case %d: posts/comparison should be populated (real or fallback)", i)
		}
	}
}

func TestRun_VoiceStage(t *testing.T) {
	tts := &fakeSpeech{failOn: "Every choice"}
	up := &fakeUploader{}
	p := New(
		WithContent(fixed(timelineReply, nil)),
		WithSpeech(tts),
		WithUploader(up),
		WithVoices(speech.VoiceSet{Creative: "v-creative", Thoughtful: "v-thoughtful"}),
	)

	res := p.Run(context.Background(), alex)

	if len(res.VoiceClips) != 2 {
		t.Fatalf("voice clips = %d, want 2", len(res.VoiceClips))
	}
	if !strings.Contains(res.VoiceClips[0].Text, "Hello Alex") || !strings.Contains(res.VoiceClips[1].Text, "not here to tell you") {
		t.Errorf("clips out of line order: %q, %q", res.VoiceClips[0].Text, res.VoiceClips[1].Text)
	}
	for _, c := range res.VoiceClips {
		if !strings.HasPrefix(c.URL, "https://cdn.example/voice/") || c.Data != nil {
			t.Errorf("clip should be uploaded: %+v", c)
		}
	}
	if !res.HasError(models.StageVoice) {
		t.Error("failed clip should be recorded")
	}
	for _, v := range tts.voices {
		if v != "v-creative" {
			t.Errorf("voice = %q, want creative voice", v)
		}
	}
}

func TestRun_VoiceUploadFailureKeepsInline(t *testing.T) {
	p := New(WithSpeech(&fakeSpeech{}), WithUploader(&fakeUploader{err: errors.New("s3 down")}))
	res := p.Run(context.Background(), alex)
	if len(res.VoiceClips) != 3 {
		t.Fatalf("voice clips = %d", len(res.VoiceClips))
	}
	if res.VoiceClips[0].Data == nil || res.VoiceClips[0].URL != "" {
		t.Errorf("clip should stay inline: %+v", res.VoiceClips[0])
	}
}

func TestRunWithProgress_Events(t *testing.T) {
	p := New(WithContent(fixed(timelineReply, nil)))
	var events []models.StageEvent
	p.RunWithProgress(context.Background(), alex, func(e models.StageEvent) {
		events = append(events, e)
	})

	status := map[models.Stage][]models.StageStatus{}
	for _, e := range events {
		status[e.Stage] = append(status[e.Stage], e.Status)
	}
	if got := status[models.StageTimeline]; len(got) != 2 || got[0] != models.StageStarted || got[1] != models.StageSucceeded {
		t.Errorf("timeline events = %v", got)
	}
	// the timeline reply has no "platform" key but decodes; posts without captions are dropped
	if got := status[models.StagePosts]; len(got) != 2 || got[1] != models.StageFallback {
		t.Errorf("posts events = %v", got)
	}
	if got := status[models.StageVoice]; len(got) != 1 || got[0] != models.StageSkipped {
		t.Errorf("voice events = %v", got)
	}
}

func TestNormalizeTimeline_SortsAndCaps(t *testing.T) {
	in := []models.TimelineEvent{
		{Age: 40, Title: "d"}, {Age: 20, Title: "a"}, {Age: 30, Title: "c"},
		{Age: 25, Title: "b"}, {Age: 50, Title: "e"}, {Age: 10},
	}
	out := normalizeTimeline(in)
	if len(out) != 4 {
		t.Fatalf("len = %d", len(out))
	}
	for i, want := range []int{20, 25, 30, 40} {
		if out[i].Age != want {
			t.Errorf("out[%d].Age = %d, want %d", i, out[i].Age, want)
		}
	}
}

func TestNormalizePosts(t *testing.T) {
	out := normalizePosts([]models.SocialPost{
		{Network: "LinkedIn ", Caption: "New role", Tags: []string{"#career", " ", "growth"}, Likes: -3},
		{Network: "tiktok", Caption: "dance"},
		{Caption: "  "},
	})
	if len(out) != 2 {
		t.Fatalf("len = %d", len(out))
	}
	if out[0].Network != models.NetworkLinkedIn || out[0].Likes != 0 || fmt.Sprint(out[0].Tags) != "[career growth]" {
		t.Errorf("out[0] = %+v", out[0])
	}
	if out[1].Network != models.NetworkInstagram {
		t.Errorf("unknown network should map to instagram, got %q", out[1].Network)
	}
}

func TestFallbacks_NonEmptyForEmptyInput(t *testing.T) {
	var in models.SimulationInput
	if len(FallbackTimeline(in)) != 4 || len(FallbackPosts(in)) != 3 || len(FallbackComparison(in)) != 5 {
		t.Error("fallbacks must be non-empty with the requested counts")
	}
}
