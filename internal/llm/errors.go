package llm

import (
	"errors"
	"fmt"
)

// Kind categorizes invocation failures.
type Kind string

const (
	KindConstruction Kind = "construction" // nothing to send, no call made
	KindAuth         Kind = "auth"         // key rejected
	KindConnection   Kind = "connection"   // provider unreachable or timed out
	KindRateLimit    Kind = "rate_limit"   // provider or local throttle
	KindProvider     Kind = "provider"     // provider returned an error
	KindUnknown      Kind = "unknown"
)

// Error is a classified invocation failure.
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("llm %s error (status %d): %s", e.Kind, e.StatusCode, msg)
	}
	return fmt.Sprintf("llm %s error: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the failure kind of err, or KindUnknown when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// UserMessage turns an invocation error into a message for the user. Each
// kind gets its own wording.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) {
		return fmt.Sprintf("Unexpected error while calling the API: %v", err)
	}

	switch e.Kind {
	case KindConstruction:
		return "Cannot build the request: the user message and the image are both empty."
	case KindAuth:
		return "API authentication failed: check that your API key is correct and still valid."
	case KindConnection:
		return "API connection failed: could not reach the base URL. Check your network and the base URL."
	case KindRateLimit:
		return "API rate limit exceeded: wait a moment and try again, or check your account usage limits."
	case KindProvider:
		return fmt.Sprintf("The API returned an error: %s", detail(e))
	default:
		return fmt.Sprintf("Unexpected error while calling the API: %s", detail(e))
	}
}

func detail(e *Error) string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}
