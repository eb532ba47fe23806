package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoJSONArray means the text held no recoverable JSON array.
	ErrNoJSONArray = errors.New("no json array in response")
	// ErrEmptyArray means the array decoded but held no items.
	ErrEmptyArray = errors.New("json array is empty")
)

// ParseError wraps a failure to turn response text into items.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse response: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// stripCodeFence removes a surrounding markdown code fence if present.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ExtractJSONArray returns the first top-level JSON array found in text.
// It tries a bracket-balanced match first, then the span from the first '[' to the last ']'.
// ok is false when neither candidate is valid JSON.
func ExtractJSONArray(text string) (string, bool) {
	s := stripCodeFence(text)
	start := strings.Index(s, "[")
	for start >= 0 {
		if end := matchBracket(s, start); end > start {
			candidate := s[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate, true
			}
		}
		next := strings.Index(s[start+1:], "[")
		if next < 0 {
			break
		}
		start += next + 1
	}

	first, last := strings.Index(s, "["), strings.LastIndex(s, "]")
	if first >= 0 && last > first {
		candidate := s[first : last+1]
		if json.Valid([]byte(candidate)) {
			return candidate, true
		}
	}
	return "", false
}

// matchBracket returns the index of the ']' closing the '[' at start, or -1.
// Brackets inside JSON strings are ignored.
func matchBracket(s string, start int) int {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// DecodeArray extracts and decodes a non-empty JSON array of T from free text.
func DecodeArray[T any](text string) ([]T, error) {
	raw, ok := ExtractJSONArray(text)
	if !ok {
		return nil, &ParseError{Raw: text, Err: ErrNoJSONArray}
	}
	var items []T
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, &ParseError{Raw: text, Err: err}
	}
	if len(items) == 0 {
		return nil, &ParseError{Raw: text, Err: ErrEmptyArray}
	}
	return items, nil
}
