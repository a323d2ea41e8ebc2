package prompt

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/jywlabs/scriptwiz/internal/catalog"
)

const testPrompts = `prompts:
  outline_generation:
    gpt-4o:
      system_message: "gpt-4o system"
      user_message_template: "Write an outline about {topic}."
      parameters:
        temperature: 0.9
        max_tokens: 2048
    default:
      system_message: "default system"
      user_message_template: "Outline: {topic}"
  image_to_video_prompt_generation:
    vision-pro:
      system_message: "vision system"
      user_message_template: "Describe {scene_description}"
  script_generation:
    default:
      system_message: "script system"
      user_message_template: "Expand {outline} to about {word_count} words. Use {{braces}} literally."
  empty_template:
    default:
      system_message: "sys"
      user_message_template: "   "
  unusable:
    default:
`

func mustCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Parse([]byte(testPrompts))
	if err != nil {
		t.Fatalf("catalog.Parse failed: %v", err)
	}
	return c
}

func TestResolve_ModelEntry(t *testing.T) {
	r, err := Resolve(mustCatalog(t), "outline_generation", "gpt-4o", Vars{"topic": "bees"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if r.System != "gpt-4o system" {
		t.Errorf("expected model-specific system message, got %q", r.System)
	}
	if r.UserText() != "Write an outline about bees." {
		t.Errorf("unexpected user message %q", r.UserText())
	}
	if r.Params.Float("temperature", 0.7) != 0.9 {
		t.Errorf("expected resolved temperature to win, got %v", r.Params.Float("temperature", 0.7))
	}
	if r.Params.Int("max_tokens", 1500) != 2048 {
		t.Errorf("expected resolved max_tokens to win, got %v", r.Params.Int("max_tokens", 1500))
	}
	if r.FallbackFrom != "" || len(r.Notices) != 0 {
		t.Errorf("expected no fallback, got %q %v", r.FallbackFrom, r.Notices)
	}
}

func TestResolve_DefaultEntry(t *testing.T) {
	r, err := Resolve(mustCatalog(t), "outline_generation", "llama-3", Vars{"topic": "bees"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if r.EntryKey != "default" || r.UserText() != "Outline: bees" {
		t.Errorf("expected default entry, got %q / %q", r.EntryKey, r.UserText())
	}
	if r.FallbackFrom != "" {
		t.Errorf("default entry is not a fallback, got %q", r.FallbackFrom)
	}
	if got := r.Params.Float("temperature", 0.7); got != 0.7 {
		t.Errorf("expected call-site default temperature, got %v", got)
	}
}

func TestResolve_FirstEntryFallback(t *testing.T) {
	r, err := Resolve(mustCatalog(t), "image_to_video_prompt_generation", "gpt-3.5", Vars{"scene_description": "a cat"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if r.FallbackFrom != "vision-pro" {
		t.Errorf("expected fallback from vision-pro, got %q", r.FallbackFrom)
	}
	if len(r.Notices) != 1 || !strings.Contains(r.Notices[0], "vision-pro") {
		t.Errorf("expected notice naming vision-pro, got %v", r.Notices)
	}
	if r.UserText() != "Describe a cat" {
		t.Errorf("unexpected user message %q", r.UserText())
	}
}

func TestResolve_MissingTask(t *testing.T) {
	r, err := Resolve(mustCatalog(t), "storyboard_generation", "gpt-4o", nil)

	var cfgErr *ConfigurationMissingError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationMissingError, got %v", err)
	}
	if r != nil {
		t.Error("expected nil result")
	}
	if cfgErr.Task != "storyboard_generation" {
		t.Errorf("unexpected task %q", cfgErr.Task)
	}
}

func TestResolve_NoUsableEntry(t *testing.T) {
	_, err := Resolve(mustCatalog(t), "unusable", "gpt-4o", nil)

	var cfgErr *ConfigurationMissingError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationMissingError, got %v", err)
	}
}

func TestResolve_MissingVariable(t *testing.T) {
	r, err := Resolve(mustCatalog(t), "script_generation", "gpt-4o", Vars{"outline": "1. Intro"})

	var tplErr *TemplateError
	if !errors.As(err, &tplErr) {
		t.Fatalf("expected TemplateError, got %v", err)
	}
	if !reflect.DeepEqual(tplErr.Missing, []string{"word_count"}) {
		t.Errorf("expected word_count missing, got %v", tplErr.Missing)
	}
	if r == nil {
		t.Fatal("expected a result alongside the template error")
	}
	if r.User != nil {
		t.Errorf("expected nil user message, got %q", *r.User)
	}
	if r.System != "script system" {
		t.Errorf("expected system message to be kept, got %q", r.System)
	}
}

func TestResolve_EscapedBraces(t *testing.T) {
	r, err := Resolve(mustCatalog(t), "script_generation", "x", Vars{"outline": "1. Intro", "word_count": 1000})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	want := "Expand 1. Intro to about 1000 words. Use {braces} literally."
	if r.UserText() != want {
		t.Errorf("expected %q, got %q", want, r.UserText())
	}
	if r.Template == r.UserText() {
		t.Error("expected raw template to be kept separately")
	}
}

func TestResolve_EmptyTemplate(t *testing.T) {
	r, err := Resolve(mustCatalog(t), "empty_template", "x", Vars{"topic": "bees"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if r.User == nil || *r.User != "" {
		t.Errorf("expected empty user message, got %v", r.User)
	}
	if len(r.Notices) != 1 {
		t.Errorf("expected unused-variables notice, got %v", r.Notices)
	}

	r, err = Resolve(mustCatalog(t), "empty_template", "x", nil)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(r.Notices) != 0 {
		t.Errorf("expected no notice without variables, got %v", r.Notices)
	}
}

func TestPlaceholders(t *testing.T) {
	tests := []struct {
		template string
		want     []string
		wantErr  bool
	}{
		{"plain text", nil, false},
		{"{a} and {b} and {a}", []string{"a", "b"}, false},
		{"{{not}} {real}", []string{"real"}, false},
		{"{value:>10} {obj.attr} {items[0]} {name!r}", []string{"value", "obj", "items", "name"}, false},
		{"{}", nil, true},
		{"{open", nil, true},
		{"close}", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.template, func(t *testing.T) {
			got, err := Placeholders(tt.template)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Placeholders(%q) error = %v, wantErr %v", tt.template, err, tt.wantErr)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Placeholders(%q) = %v, want %v", tt.template, got, tt.want)
			}
		})
	}
}

func TestParams(t *testing.T) {
	p := Params{"a": 1, "b": 0.25, "c": "3", "d": "x"}

	if p.Float("a", 0) != 1 {
		t.Error("int should convert to float")
	}
	if p.Int("b", 9) != 0 {
		t.Error("float should truncate to int")
	}
	if p.Int("c", 0) != 3 {
		t.Error("numeric string should parse")
	}
	if p.Int("d", 7) != 7 || p.Float("missing", 0.5) != 0.5 {
		t.Error("expected defaults for unusable values")
	}
	var nilParams Params
	if nilParams.Int("max_tokens", 300) != 300 {
		t.Error("nil params should return defaults")
	}
}
