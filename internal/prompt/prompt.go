// Package prompt resolves the system message, user message and generation
// parameters for a task from the prompt catalog.
package prompt

import (
	"fmt"
	"strings"

	"github.com/slongfield/pyfmt"

	"github.com/jywlabs/scriptwiz/internal/catalog"
)

// Vars are the named values substituted into a user message template.
type Vars map[string]any

// Resolved is the outcome of a lookup. When the template could not be filled
// User is nil and Resolve also returns a *TemplateError.
type Resolved struct {
	Task     string
	Model    string
	EntryKey string
	System   string
	User     *string
	Template string
	Params   Params

	// FallbackFrom is set when neither the model nor the default entry existed
	// and the first entry of the task was used. It names that entry's model key.
	FallbackFrom string
	Notices      []string
}

// UserText returns the user message or "" when it could not be formatted.
func (r *Resolved) UserText() string {
	if r == nil || r.User == nil {
		return ""
	}
	return *r.User
}

// ConfigurationMissingError means no usable prompt exists for the task.
type ConfigurationMissingError struct {
	Task   string
	Model  string
	Reason string
}

func (e *ConfigurationMissingError) Error() string {
	return fmt.Sprintf("no prompt configured for task %q (model %q): %s", e.Task, e.Model, e.Reason)
}

// TemplateError means a prompt was found but its template could not be filled.
type TemplateError struct {
	Task    string
	Missing []string
	Err     error
}

func (e *TemplateError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("prompt template for %q references missing variables: %s", e.Task, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("prompt template for %q could not be formatted: %v", e.Task, e.Err)
}

func (e *TemplateError) Unwrap() error {
	return e.Err
}

// Resolve looks up the prompt for task and model. The entry keyed by model
// wins, then the "default" entry, then the first entry of the task.
func Resolve(c *catalog.Catalog, task, model string, vars Vars) (*Resolved, error) {
	t, ok := c.Task(task)
	if !ok {
		return nil, &ConfigurationMissingError{Task: task, Model: model, Reason: "task not found in prompts file"}
	}

	r := &Resolved{Task: task, Model: model}

	entry, ok := t.Lookup(model)
	if !ok || !entry.Usable() {
		entry, ok = t.Lookup(catalog.DefaultKey)
	}
	if !ok || !entry.Usable() {
		entry, ok = t.First()
		if !ok || !entry.Usable() {
			return nil, &ConfigurationMissingError{Task: task, Model: model, Reason: "task has no usable prompt entry"}
		}
		r.FallbackFrom = entry.Key
		r.Notices = append(r.Notices, fmt.Sprintf(
			"No prompt for model %q or %q in task %q; using the prompt defined for %q.",
			model, catalog.DefaultKey, task, entry.Key))
	}

	r.EntryKey = entry.Key
	r.System = entry.SystemMessage
	r.Template = entry.UserMessageTemplate
	r.Params = Params(entry.Parameters)

	if strings.TrimSpace(r.Template) == "" {
		empty := ""
		r.User = &empty
		if len(vars) > 0 {
			r.Notices = append(r.Notices, fmt.Sprintf(
				"The user message template for %q is empty; the supplied variables were not used.", task))
		}
		return r, nil
	}

	user, err := Format(r.Template, vars)
	if err != nil {
		if te, ok := err.(*TemplateError); ok {
			te.Task = task
		}
		return r, err
	}
	r.User = &user
	return r, nil
}

// Format fills a template that uses Python-style named placeholders such as
// {topic}. Literal braces are written as {{ and }}.
func Format(template string, vars Vars) (string, error) {
	names, err := Placeholders(template)
	if err != nil {
		return "", &TemplateError{Err: err}
	}

	var missing []string
	for _, name := range names {
		if _, ok := vars[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return "", &TemplateError{Missing: missing}
	}

	args := map[string]any(vars)
	if args == nil {
		args = map[string]any{}
	}
	out, err := pyfmt.Fmt(template, args)
	if err != nil {
		return "", &TemplateError{Err: err}
	}
	return out, nil
}

// Placeholders returns the distinct field names referenced by a template in
// order of first use. Conversion and format specs are ignored, and so is any
// attribute or index access after the field name.
func Placeholders(template string) ([]string, error) {
	var names []string
	seen := make(map[string]bool)

	for i := 0; i < len(template); i++ {
		switch template[i] {
		case '{':
			if i+1 < len(template) && template[i+1] == '{' {
				i++
				continue
			}
			end := strings.IndexByte(template[i:], '}')
			if end < 0 {
				return nil, fmt.Errorf("unmatched '{' at offset %d", i)
			}
			field := template[i+1 : i+end]
			name := field
			if cut := strings.IndexAny(field, ".[!:"); cut >= 0 {
				name = field[:cut]
			}
			name = strings.TrimSpace(name)
			if name == "" {
				return nil, fmt.Errorf("positional placeholder at offset %d; use a named placeholder", i)
			}
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
			i += end
		case '}':
			if i+1 < len(template) && template[i+1] == '}' {
				i++
				continue
			}
			return nil, fmt.Errorf("single '}' at offset %d", i)
		}
	}
	return names, nil
}
