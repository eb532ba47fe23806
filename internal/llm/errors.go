package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind tags why a content generation call failed so callers can decide between
// falling back and aborting.
type ErrorKind string

const (
	KindAuth      ErrorKind = "auth"
	KindQuota     ErrorKind = "quota"
	KindMalformed ErrorKind = "malformed"
	KindEmpty     ErrorKind = "empty"
	KindUpstream  ErrorKind = "upstream"
)

// ContentError is returned by every Generator backend.
type ContentError struct {
	Kind       ErrorKind
	StatusCode int // 0 when the vendor was never reached
	Message    string
	Err        error
}

func (e *ContentError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Kind, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *ContentError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a ContentError anywhere in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var ce *ContentError
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return "", false
}

// classifyStatus maps a non-2xx vendor status onto an error kind.
func classifyStatus(status int, message string) *ContentError {
	kind := KindUpstream
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = KindAuth
	case status == http.StatusTooManyRequests || status == http.StatusPaymentRequired:
		kind = KindQuota
	case status == http.StatusBadRequest || status == http.StatusNotFound:
		kind = KindMalformed
	}
	// The vendor reports invalid keys as 400 INVALID_ARGUMENT with an explanatory message.
	if kind == KindMalformed && isAuthMessage(message) {
		kind = KindAuth
	}
	return &ContentError{Kind: kind, StatusCode: status, Message: message}
}

// classifyMessage derives a kind from SDK errors that only expose text.
func classifyMessage(err error) *ContentError {
	msg := strings.ToLower(err.Error())
	kind := KindUpstream
	switch {
	case isAuthMessage(msg) || strings.Contains(msg, "401") || strings.Contains(msg, "403"):
		kind = KindAuth
	case strings.Contains(msg, "429") || strings.Contains(msg, "quota") ||
		strings.Contains(msg, "resource_exhausted") || strings.Contains(msg, "rate limit"):
		kind = KindQuota
	case strings.Contains(msg, "400") || strings.Contains(msg, "invalid_argument"):
		kind = KindMalformed
	}
	return &ContentError{Kind: kind, Err: err}
}

func isAuthMessage(message string) bool {
	m := strings.ToLower(message)
	return strings.Contains(m, "api key") || strings.Contains(m, "api_key") ||
		strings.Contains(m, "permission_denied") || strings.Contains(m, "unauthenticated")
}
