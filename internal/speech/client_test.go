package speech

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSynthesizeSpeech_Success(t *testing.T) {
	var gotPath, gotKey string
	var gotBody synthesisRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("xi-api-key")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3fakeaudio"))
	}))
	defer srv.Close()

	c := NewClient("secret", srv.URL+"/v1/text-to-speech", "model-x", srv.Client())
	over := 1.7
	clip, err := c.SynthesizeSpeech(context.Background(), "hello there", "voice-1", Settings{
		Stability:       -0.2,
		SimilarityBoost: 0.8,
		Style:           &over,
		SpeakerBoost:    true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/v1/text-to-speech/voice-1" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "secret" {
		t.Errorf("xi-api-key = %q", gotKey)
	}
	if gotBody.Text != "hello there" || gotBody.ModelID != "model-x" {
		t.Errorf("body = %+v", gotBody)
	}
	vs := gotBody.VoiceSettings
	if vs.Stability != 0 || vs.SimilarityBoost != 0.8 || vs.Style == nil || *vs.Style != 1 || !vs.UseSpeakerBoost {
		t.Errorf("voice_settings not clamped: %+v", vs)
	}
	if string(clip.Data) != "ID3fakeaudio" || clip.Size != 12 || clip.MimeType != "audio/mpeg" {
		t.Errorf("clip = %+v", clip)
	}
	if clip.Text != "hello there" {
		t.Errorf("clip text = %q", clip.Text)
	}
}

func TestSynthesizeSpeech_StyleOmitted(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&raw)
		_, _ = w.Write([]byte("audio"))
	}))
	defer srv.Close()

	c := NewClient("k", srv.URL, "m", srv.Client())
	if _, err := c.SynthesizeSpeech(context.Background(), "hi", "v", Settings{Stability: 0.5}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	settings, _ := raw["voice_settings"].(map[string]any)
	if _, ok := settings["style"]; ok {
		t.Errorf("style should be omitted when unset: %v", settings)
	}
}

func TestSynthesizeSpeech_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"invalid key"}`))
	}))
	defer srv.Close()

	c := NewClient("bad", srv.URL, "m", srv.Client())
	_, err := c.SynthesizeSpeech(context.Background(), "hi", "v", DefaultSettings())
	var se *SynthesisError
	if !errors.As(err, &se) {
		t.Fatalf("expected *SynthesisError, got %v", err)
	}
	if se.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d", se.StatusCode)
	}
}

func TestSynthesizeSpeech_EmptyInput(t *testing.T) {
	c := NewClient("k", "http://127.0.0.1:0", "m", nil)
	if _, err := c.SynthesizeSpeech(context.Background(), " ", "v", DefaultSettings()); err == nil {
		t.Error("expected error for empty text")
	}
	if _, err := c.SynthesizeSpeech(context.Background(), "hi", "", DefaultSettings()); err == nil {
		t.Error("expected error for empty voice id")
	}
}
