package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

func init() {
	Register("openai", func(cfg Config) Invoker {
		return NewOpenAI(cfg)
	})
}

// OpenAIInvoker talks to any OpenAI-compatible chat completions endpoint.
type OpenAIInvoker struct {
	Timeout    time.Duration
	HTTPClient *http.Client
}

// NewOpenAI creates an OpenAI-compatible invoker.
func NewOpenAI(cfg Config) *OpenAIInvoker {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &OpenAIInvoker{Timeout: timeout}
}

// Name returns the invoker identifier.
func (o *OpenAIInvoker) Name() string {
	return "openai"
}

// Invoke sends a single chat completion request.
func (o *OpenAIInvoker) Invoke(ctx context.Context, req Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	log := logrus.WithFields(logrus.Fields{
		"task":     req.Task,
		"model":    req.Model,
		"base_url": req.BaseURL,
		"image":    req.Image != nil,
	})
	if warning := MultimodalWarning(req); warning != "" {
		log.Warn(warning)
	}

	cfg := openai.DefaultConfig(req.APIKey)
	if req.BaseURL != "" {
		cfg.BaseURL = req.BaseURL
	}
	if o.HTTPClient != nil {
		cfg.HTTPClient = o.HTTPClient
	}
	client := openai.NewClientWithConfig(cfg)

	ctx, cancel := context.WithTimeout(ctx, o.Timeout)
	defer cancel()

	log.Debug("calling chat completion")
	start := time.Now()
	resp, err := client.CreateChatCompletion(ctx, buildChatRequest(req))
	duration := time.Since(start)
	if err != nil {
		classified := Classify(err)
		log.WithFields(logrus.Fields{
			"kind":     classified.Kind,
			"status":   classified.StatusCode,
			"duration": duration,
		}).WithError(err).Warn("chat completion failed")
		return nil, classified
	}

	if len(resp.Choices) == 0 {
		return nil, &Error{Kind: KindProvider, Message: "response contained no choices"}
	}

	out := &Response{
		Text:     resp.Choices[0].Message.Content,
		Model:    resp.Model,
		Duration: duration,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	log.WithFields(logrus.Fields{
		"prompt_tokens":     out.Usage.PromptTokens,
		"completion_tokens": out.Usage.CompletionTokens,
		"total_tokens":      out.Usage.TotalTokens,
		"duration":          duration,
	}).Info("chat completion finished")
	return out, nil
}

func buildChatRequest(req Request) openai.ChatCompletionRequest {
	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}

	var parts []openai.ChatMessagePart
	if req.User != "" {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeText,
			Text: req.User,
		})
	}
	if req.Image != nil && len(req.Image.Data) > 0 {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL: DataURI(req.Image),
			},
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:         openai.ChatMessageRoleUser,
		MultiContent: parts,
	})

	return openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
	}
}

// DataURI encodes an image as a base64 data URI.
func DataURI(img *Image) string {
	mediaType := img.MediaType
	if mediaType == "" {
		mediaType = "image/jpeg"
	}
	return fmt.Sprintf("data:%s;base64,%s", mediaType, base64.StdEncoding.EncodeToString(img.Data))
}
