package template

import (
	"testing"

	"github.com/jywlabs/scriptwiz/internal/catalog"
	"github.com/jywlabs/scriptwiz/internal/prompt"
)

func TestDefaultPrompts_CoverEveryTask(t *testing.T) {
	c, err := catalog.Parse([]byte(DefaultPrompts))
	if err != nil {
		t.Fatalf("default prompts do not parse: %v", err)
	}

	tasks := []string{
		catalog.TaskOutline,
		catalog.TaskOutlineScore,
		catalog.TaskScript,
		catalog.TaskScriptScore,
		catalog.TaskStoryboard,
		catalog.TaskMetadata,
		catalog.TaskImagePrompt,
		catalog.TaskTranslation,
	}
	for _, task := range tasks {
		if _, err := prompt.Resolve(c, task, "any-model", nil); err != nil {
			if _, ok := err.(*prompt.ConfigurationMissingError); ok {
				t.Errorf("task %s: %v", task, err)
			}
		}
	}

	if len(c.Providers) == 0 {
		t.Error("expected default providers")
	}
}

func TestDefaultPrompts_Placeholders(t *testing.T) {
	c, err := catalog.Parse([]byte(DefaultPrompts))
	if err != nil {
		t.Fatal(err)
	}

	allowed := map[string][]string{
		catalog.TaskOutline:      {"topic"},
		catalog.TaskOutlineScore: {"outline_content"},
		catalog.TaskScript:       {"outline", "word_count"},
		catalog.TaskScriptScore:  {"script_content"},
		catalog.TaskStoryboard:   {"script_content", "scene_column", "narration_column", "image_prompt_column", "description_column"},
		catalog.TaskMetadata:     {"storyboard_summary_or_full_script", "target_audience_or_style"},
		catalog.TaskImagePrompt:  {"scene_description"},
		catalog.TaskTranslation:  {"target_language", "storyboard_scenes_json", "video_metadata_text"},
	}
	for task, vars := range allowed {
		ok := make(map[string]bool)
		for _, v := range vars {
			ok[v] = true
		}
		tk, _ := c.Task(task)
		for _, e := range tk.Entries {
			names, err := prompt.Placeholders(e.UserMessageTemplate)
			if err != nil {
				t.Errorf("%s/%s: %v", task, e.Key, err)
				continue
			}
			for _, n := range names {
				if !ok[n] {
					t.Errorf("%s/%s uses unknown placeholder %q", task, e.Key, n)
				}
			}
		}
	}
}

func TestDefaultFiles(t *testing.T) {
	files := DefaultFiles()
	for _, name := range []string{ConfigFile, PromptsFile, EnvExampleFile} {
		if files[name] == "" {
			t.Errorf("expected default content for %s", name)
		}
	}
	if ReportFileName("English") != "video_script_report_English.md" {
		t.Errorf("unexpected report file name %q", ReportFileName("English"))
	}
}
