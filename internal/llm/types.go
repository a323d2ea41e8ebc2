// Package llm sends chat-completion requests to OpenAI-compatible providers.
package llm

import (
	"context"
	"strings"
	"time"
)

// DefaultTimeout bounds a single completion call.
const DefaultTimeout = 3 * time.Minute

// Image is an image attached to the user message.
type Image struct {
	Name      string
	MediaType string
	Data      []byte
}

// Request is one chat completion call.
type Request struct {
	Task string // catalog task name, used for logging and metrics

	Model   string
	BaseURL string
	APIKey  string

	System string
	User   string
	Image  *Image

	Temperature float64
	MaxTokens   int
}

// Usage is the token accounting reported by the provider.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// Response is a successful completion. Text may be empty.
type Response struct {
	Text     string
	Model    string
	Usage    Usage
	Duration time.Duration
}

// Invoker performs completion calls. A nil error always comes with a
// non-nil *Response.
type Invoker interface {
	// Name returns the invoker identifier (e.g., "openai", "dryrun")
	Name() string

	// Invoke sends the request. It never retries.
	Invoke(ctx context.Context, req Request) (*Response, error)
}

// Config holds invoker construction settings.
type Config struct {
	Timeout time.Duration
}

// Validate reports a construction failure when there is nothing to send.
func (r Request) Validate() error {
	if strings.TrimSpace(r.User) == "" && (r.Image == nil || len(r.Image.Data) == 0) {
		return &Error{Kind: KindConstruction, Message: "both the user message and the image are empty"}
	}
	return nil
}

// LooksMultimodal reports whether a model name suggests image input support.
func LooksMultimodal(model string) bool {
	m := strings.ToLower(model)
	for _, marker := range []string{"gpt-4o", "vision", "gpt-4-turbo"} {
		if strings.Contains(m, marker) {
			return true
		}
	}
	return false
}

// MultimodalWarning returns a warning when an image is sent to a model that
// may ignore it, or "" otherwise.
func MultimodalWarning(req Request) string {
	if req.Image == nil || LooksMultimodal(req.Model) {
		return ""
	}
	return "Model " + req.Model + " may not accept image input; the image might be ignored. Choose a vision-capable model if results look wrong."
}
