package llm

import (
	"errors"
	"testing"

	"github.com/snappy-loop/shadowtwin/internal/models"
)

func TestExtractJSONArray(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{
		{"bare", `[1,2]`, `[1,2]`, true},
		{"prose prefix", `Here you go: [{"age":22}]`, `[{"age":22}]`, true},
		{"prose suffix", `[{"a":1}] hope that helps!`, `[{"a":1}]`, true},
		{"code fence", "```json\n[{\"a\":1}]\n```", `[{"a":1}]`, true},
		{"bracket in string", `Sure: [{"title":"a ] b"}] done`, `[{"title":"a ] b"}]`, true},
		{"nested", `x [[1],[2]] y`, `[[1],[2]]`, true},
		{"first invalid then valid", `see [note] then [{"a":1}]`, `[{"a":1}]`, true},
		{"prose only", `I cannot help with that.`, ``, false},
		{"unbalanced", `[{"a":1}`, ``, false},
		{"empty", ``, ``, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSONArray(tt.in)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ExtractJSONArray(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

type item struct {
	Age   int    `json:"age"`
	Title string `json:"title"`
}

func TestDecodeArray(t *testing.T) {
	items, err := DecodeArray[item](`Here you go: [{"age":22,"title":"Moved abroad"}]`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].Age != 22 || items[0].Title != "Moved abroad" {
		t.Errorf("items = %+v", items)
	}
}

func TestDecodeArray_QuotedCounts(t *testing.T) {
	events, err := DecodeArray[models.TimelineEvent]("```json\n[{\"age\":\"22\",\"title\":\"Moved abroad\"}]\n```")
	if err != nil || len(events) != 1 || events[0].Age != 22 {
		t.Errorf("timeline = %+v, %v", events, err)
	}
	posts, err := DecodeArray[models.SocialPost](`[{"platform":"instagram","caption":"x","likes":"1.2k"}]`)
	if err != nil || len(posts) != 1 || posts[0].Likes != 1200 {
		t.Errorf("posts = %+v, %v", posts, err)
	}
}

func TestDecodeArray_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		is   error
	}{
		{"no array", "just prose", ErrNoJSONArray},
		{"empty array", "[]", ErrEmptyArray},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeArray[item](tt.in)
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected *ParseError, got %v", err)
			}
			if !errors.Is(err, tt.is) {
				t.Errorf("err = %v, want %v", err, tt.is)
			}
		})
	}

	_, err := DecodeArray[item](`[{"age":"twenty"}]`)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Errorf("type mismatch: expected *ParseError, got %v", err)
	}
}
