package models

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// countPattern matches generated counts such as "22", "1,204", "1.2k" or "3M followers".
var countPattern = regexp.MustCompile(`^([0-9][0-9,]*(?:\.[0-9]+)?)\s*([kKmM])?\b`)

// parseCount reads a JSON number or a quoted human-style count. null and "" are zero.
func parseCount(raw json.RawMessage) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return int(math.Round(n)), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("want number, got %s", raw)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	m := countPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("not a count: %q", s)
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("not a count: %q", s)
	}
	switch strings.ToLower(m[2]) {
	case "k":
		v *= 1e3
	case "m":
		v *= 1e6
	}
	return int(math.Round(v)), nil
}

// UnmarshalJSON accepts the age as a number or a numeric string.
func (e *TimelineEvent) UnmarshalJSON(data []byte) error {
	type plain TimelineEvent
	aux := struct {
		*plain
		Age json.RawMessage `json:"age"`
	}{plain: (*plain)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	age, err := parseCount(aux.Age)
	if err != nil {
		return fmt.Errorf("timeline age: %w", err)
	}
	e.Age = age
	return nil
}

// UnmarshalJSON accepts likes as a number or a count like "1.2k".
func (p *SocialPost) UnmarshalJSON(data []byte) error {
	type plain SocialPost
	aux := struct {
		*plain
		Likes json.RawMessage `json:"likes"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	likes, err := parseCount(aux.Likes)
	if err != nil {
		return fmt.Errorf("post likes: %w", err)
	}
	p.Likes = likes
	return nil
}
