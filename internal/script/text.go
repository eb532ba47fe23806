package script

import (
	"strings"
	"unicode"

	"github.com/rivo/uniseg"
)

const (
	// MaxScriptWords keeps avatar scripts under 200 words.
	MaxScriptWords = 199
	// MaxReplyWords caps one conversational reply.
	MaxReplyWords = 150
	// MaxCaptionGraphemes caps a generated social caption.
	MaxCaptionGraphemes = 280
)

// LimitWords keeps at most n whitespace-separated words of s.
// s is returned untouched when it is short enough, so line breaks survive.
func LimitWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return s
	}
	return strings.Join(words[:n], " ") + "..."
}

// TruncateGraphemes keeps at most n user-perceived characters of s, so emoji and
// combining sequences are never split.
func TruncateGraphemes(s string, n int) string {
	if uniseg.GraphemeClusterCount(s) <= n {
		return s
	}
	var b strings.Builder
	gr := uniseg.NewGraphemes(s)
	for i := 0; i < n-1 && gr.Next(); i++ {
		b.WriteString(gr.Str())
	}
	b.WriteString("…")
	return b.String()
}

// LowerWords splits s into lowercase runs of letters.
func LowerWords(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}

// HasWordPrefix reports whether any word starts with any keyword.
func HasWordPrefix(words, keywords []string) bool {
	for _, kw := range keywords {
		for _, w := range words {
			if strings.HasPrefix(w, kw) {
				return true
			}
		}
	}
	return false
}
