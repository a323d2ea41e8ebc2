package llm

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// authPatterns indicate the provider rejected the credentials.
var authPatterns = []string{
	"unauthorized",
	"authentication",
	"invalid api key",
	"incorrect api key",
	"invalid_api_key",
	"401",
}

// rateLimitPatterns indicate the account or provider is throttling requests.
var rateLimitPatterns = []string{
	"rate limit",
	"rate_limit",
	"too many requests",
	"quota",
	"429",
}

// connectionPatterns indicate the provider could not be reached.
var connectionPatterns = []string{
	"timeout",
	"timed out",
	"deadline exceeded",
	"connection refused",
	"connection reset",
	"no such host",
	"network is unreachable",
	"temporary failure",
	"eof",
}

// providerPatterns indicate the provider answered with an error.
var providerPatterns = []string{
	"service unavailable",
	"overloaded",
	"bad request",
	"internal server error",
	"500",
	"502",
	"503",
}

// Classify wraps err in an *Error with its kind. Typed provider errors are
// classified by status code; anything else falls back to message patterns.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return e
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &Error{Kind: kindForStatus(apiErr.HTTPStatusCode), StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message, Err: err}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &Error{Kind: kindForStatus(reqErr.HTTPStatusCode), StatusCode: reqErr.HTTPStatusCode, Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindConnection, Message: "request timed out", Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &Error{Kind: KindUnknown, Message: "request cancelled", Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &Error{Kind: KindConnection, Err: err}
	}

	return &Error{Kind: kindForMessage(err.Error()), Err: err}
}

func kindForStatus(code int) Kind {
	switch {
	// 403 is a permission problem on a valid key, reported as a provider error.
	case code == http.StatusUnauthorized:
		return KindAuth
	case code == http.StatusTooManyRequests:
		return KindRateLimit
	case code >= 400:
		return KindProvider
	}
	return KindUnknown
}

func kindForMessage(msg string) Kind {
	s := strings.ToLower(msg)

	// Auth first: "invalid api key" must not be read as a provider error.
	for _, group := range []struct {
		kind     Kind
		patterns []string
	}{
		{KindAuth, authPatterns},
		{KindRateLimit, rateLimitPatterns},
		{KindConnection, connectionPatterns},
		{KindProvider, providerPatterns},
	} {
		for _, p := range group.patterns {
			if strings.Contains(s, p) {
				return group.kind
			}
		}
	}
	return KindUnknown
}
