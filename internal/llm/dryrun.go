package llm

import (
	"context"
	"fmt"
	"strings"
)

func init() {
	Register("dryrun", func(Config) Invoker {
		return &DryRunInvoker{}
	})
}

// DryRunInvoker answers every request locally with placeholder content so the
// wizard can be walked through without a provider.
type DryRunInvoker struct{}

// Name returns the invoker identifier.
func (d *DryRunInvoker) Name() string {
	return "dryrun"
}

// Invoke returns canned output shaped like the task's real output.
func (d *DryRunInvoker) Invoke(ctx context.Context, req Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, Classify(err)
	}

	text := cannedOutput(req)
	words := len(strings.Fields(req.System)) + len(strings.Fields(req.User))
	return &Response{
		Text:  text,
		Model: req.Model,
		Usage: Usage{
			PromptTokens:     words,
			CompletionTokens: len(strings.Fields(text)),
			TotalTokens:      words + len(strings.Fields(text)),
		},
	}, nil
}

func cannedOutput(req Request) string {
	switch req.Task {
	case "storyboard_generation":
		return "| Scene | Narration | Image Prompt | Description |\n" +
			"|---|---|---|---|\n" +
			"| 1 | 开场介绍主题 | Wide establishing shot, soft morning light | Opening |\n" +
			"| 2 | 讲解核心内容 | Close-up of the subject, detailed textures | Main point |\n" +
			"| 3 | 总结并号召订阅 | Presenter smiling at camera, warm colors | Closing |"
	case "outline_scoring", "script_scoring":
		return "Score: 8/10\n\n[dry run] Clear structure; consider a stronger hook."
	case "translate_and_format_to_md_zh":
		return "# [dry run] Video script report\n\n## Scenes\n\n1. ...\n\n## Metadata\n\n..."
	}
	preview := req.User
	if r := []rune(preview); len(r) > 120 {
		preview = string(r[:120]) + "..."
	}
	return fmt.Sprintf("[dry run] %s output for request:\n%s", req.Task, preview)
}
