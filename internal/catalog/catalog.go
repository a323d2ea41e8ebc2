// Package catalog loads prompts.yaml: the model providers offered during
// configuration and the per-task, per-model prompt entries.
package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultKey is the model key used when a task has no entry for the selected model.
const DefaultKey = "default"

// Task names used by the wizard stages.
const (
	TaskOutline      = "outline_generation"
	TaskOutlineScore = "outline_scoring"
	TaskScript       = "script_generation"
	TaskScriptScore  = "script_scoring"
	TaskStoryboard   = "storyboard_generation"
	TaskMetadata     = "video_metadata_generation"
	TaskImagePrompt  = "image_to_video_prompt_generation"
	TaskTranslation  = "translate_and_format_to_md_zh"
)

// WizardTasks lists every task a complete wizard run uses.
var WizardTasks = []string{
	TaskOutline,
	TaskOutlineScore,
	TaskScript,
	TaskScriptScore,
	TaskStoryboard,
	TaskMetadata,
	TaskImagePrompt,
	TaskTranslation,
}

// Provider is a model provider offered during configuration.
type Provider struct {
	Name            string   `yaml:"provider_name" json:"name"`
	BaseURLTemplate string   `yaml:"base_url_template" json:"baseUrl"`
	Models          []string `yaml:"models" json:"models"`
}

// HasModels reports whether the provider restricts the model choice.
func (p Provider) HasModels() bool {
	return len(p.Models) > 0
}

// Entry is one prompt definition for a task and model key.
type Entry struct {
	Key                 string         `yaml:"-"`
	SystemMessage       string         `yaml:"system_message"`
	UserMessageTemplate string         `yaml:"user_message_template"`
	Parameters          map[string]any `yaml:"parameters"`

	// usable is false for null or empty mappings.
	usable bool
}

// Usable reports whether the entry holds any prompt definition at all.
func (e *Entry) Usable() bool {
	return e != nil && e.usable
}

// Task holds the entries of one task in file order.
type Task struct {
	Name    string
	Entries []*Entry
}

// Lookup returns the entry with the given model key.
func (t *Task) Lookup(key string) (*Entry, bool) {
	for _, e := range t.Entries {
		if e.Key == key {
			return e, true
		}
	}
	return nil, false
}

// First returns the first entry in file order.
func (t *Task) First() (*Entry, bool) {
	if len(t.Entries) == 0 {
		return nil, false
	}
	return t.Entries[0], true
}

// Catalog is a parsed prompts.yaml.
type Catalog struct {
	Path      string
	Providers []Provider

	tasks map[string]*Task
	order []string
}

// Task returns the named task.
func (c *Catalog) Task(name string) (*Task, bool) {
	if c == nil {
		return nil, false
	}
	t, ok := c.tasks[name]
	return t, ok
}

// Tasks returns task names in file order.
func (c *Catalog) Tasks() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.order...)
}

// Provider returns the provider with the given name, ignoring case.
func (c *Catalog) Provider(name string) (*Provider, bool) {
	if c == nil {
		return nil, false
	}
	for i := range c.Providers {
		if strings.EqualFold(c.Providers[i].Name, name) {
			return &c.Providers[i], true
		}
	}
	return nil, false
}

// LoadFile reads and parses a prompts file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("prompts file not found: %s (run 'scriptwiz init')", path)
		}
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	c.Path = path
	return c, nil
}

// Parse decodes prompts.yaml content. Tasks and their model entries keep the
// order in which they appear in the document.
func Parse(data []byte) (*Catalog, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	c := &Catalog{tasks: make(map[string]*Task)}
	if len(doc.Content) == 0 {
		return c, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("expected a mapping at the top level, got %s", kindName(root.Kind))
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i].Value, root.Content[i+1]
		switch key {
		case "available_model_providers":
			if err := value.Decode(&c.Providers); err != nil {
				return nil, fmt.Errorf("available_model_providers: %w", err)
			}
		case "prompts":
			if err := c.parsePrompts(value); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

func (c *Catalog) parsePrompts(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("prompts: expected a mapping of tasks, got %s", kindName(node.Kind))
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		name, body := node.Content[i].Value, node.Content[i+1]
		task := &Task{Name: name}

		// A task whose body is not a mapping is kept with no entries.
		if body.Kind == yaml.MappingNode {
			for j := 0; j+1 < len(body.Content); j += 2 {
				entry, err := parseEntry(body.Content[j].Value, body.Content[j+1])
				if err != nil {
					return fmt.Errorf("prompts.%s: %w", name, err)
				}
				task.Entries = append(task.Entries, entry)
			}
		}

		if _, dup := c.tasks[name]; !dup {
			c.order = append(c.order, name)
		}
		c.tasks[name] = task
	}
	return nil
}

func parseEntry(key string, node *yaml.Node) (*Entry, error) {
	e := &Entry{Key: key}
	if node.Kind != yaml.MappingNode || len(node.Content) == 0 {
		return e, nil
	}
	if err := node.Decode(e); err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	e.Key = key
	e.usable = true
	return e, nil
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	}
	return "unknown"
}
