package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jywlabs/scriptwiz/internal/catalog"
	"github.com/jywlabs/scriptwiz/internal/template"
)

func TestCheckCatalog(t *testing.T) {
	t.Run("default prompts pass", func(t *testing.T) {
		c, err := catalog.Parse([]byte(template.DefaultPrompts))
		if err != nil {
			t.Fatalf("Parse() error: %v", err)
		}
		issues := checkCatalog(c)
		if !issues.Valid() {
			t.Fatalf("errors = %v, want none", issues.Errors)
		}
	})

	t.Run("missing and empty tasks are errors", func(t *testing.T) {
		c, err := catalog.Parse([]byte(`prompts:
  outline_generation:
    default: null
  script_generation:
    gpt-4o:
      system_message: s
      user_message_template: u
`))
		if err != nil {
			t.Fatalf("Parse() error: %v", err)
		}
		issues := checkCatalog(c)
		if issues.Valid() {
			t.Fatal("expected errors")
		}
		joined := strings.Join(issues.Errors, "\n")
		if !strings.Contains(joined, "outline_generation: no usable entry") {
			t.Errorf("errors = %v, want outline_generation unusable", issues.Errors)
		}
		if !strings.Contains(joined, "storyboard_generation: task missing") {
			t.Errorf("errors = %v, want storyboard_generation missing", issues.Errors)
		}
		if !strings.Contains(strings.Join(issues.Warnings, "\n"), `script_generation: no "default" entry, unknown models use "gpt-4o"`) {
			t.Errorf("warnings = %v, want default entry warning", issues.Warnings)
		}
	})
}

func TestValidateProject(t *testing.T) {
	dir := filepath.Join(t.TempDir(), template.ProjectDir)
	if err := initProject(dir, &bytes.Buffer{}); err != nil {
		t.Fatalf("initProject() error: %v", err)
	}

	var out bytes.Buffer
	if err := validateProject(dir, &out); err != nil {
		t.Fatalf("validateProject() error: %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), "All checks passed") {
		t.Errorf("output = %q", out.String())
	}

	if err := os.WriteFile(filepath.Join(dir, template.PromptsFile), []byte("prompts: {}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	out.Reset()
	if err := validateProject(dir, &out); err == nil {
		t.Fatal("expected an error for an empty catalog")
	}
}
