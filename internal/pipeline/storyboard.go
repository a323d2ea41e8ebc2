package pipeline

import (
	"bytes"
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jywlabs/scriptwiz/internal/catalog"
	"github.com/jywlabs/scriptwiz/internal/prompt"
	"github.com/jywlabs/scriptwiz/internal/session"
	"github.com/jywlabs/scriptwiz/internal/table"
)

// GenerateStoryboard splits the script into scenes. The raw model output is
// always kept; the table is only replaced when the output parses into at
// least one row.
func (w *Wizard) GenerateStoryboard(ctx context.Context, sess *session.Session) (*Result, error) {
	if err := CheckPrerequisites(sess, StageStoryboard); err != nil {
		return nil, err
	}

	res := &Result{Stage: StageStoryboard}
	if _, err := w.invoke(ctx, sess, call{
		stage: StageStoryboard,
		task:  catalog.TaskStoryboard,
		vars: prompt.Vars{
			"script_content":      sess.Script,
			"scene_column":        w.Columns.Scene,
			"narration_column":    w.Columns.Narration,
			"image_prompt_column": w.Columns.ImagePrompt,
			"description_column":  w.Columns.Description,
		},
		temperature: storyboardTemperature,
		maxTokens:   storyboardMaxTokens,
	}, res); err != nil {
		return nil, err
	}

	sess.StoryboardRaw = res.Text
	sess.Touch()

	t := table.Parse(res.Text)
	if t.Empty() {
		logrus.WithField("session", sess.ID).Warn("storyboard output did not contain a table")
		if sess.Storyboard.Empty() {
			res.warn("The model output could not be read as a table. The raw output was saved; edit it with 'scriptwiz storyboard set'.")
		} else {
			res.warn("The model output could not be read as a table; the previous storyboard was kept.")
		}
		return res, nil
	}

	sess.Storyboard = t
	w.checkColumns(t, res)
	res.Next = StageStoryboard.Next()
	return res, nil
}

// SetStoryboard replaces the storyboard with user-supplied content: either a
// JSON array of rows (the export format) or a markdown table.
func (w *Wizard) SetStoryboard(sess *session.Session, content string) (*Result, error) {
	t, err := parseStoryboardInput(content)
	if err != nil {
		return nil, err
	}
	if t.Empty() {
		return nil, &InputError{Field: "storyboard", Message: "no table rows found"}
	}

	sess.Storyboard = t
	sess.StoryboardRaw = content
	sess.Touch()

	res := &Result{Stage: StageStoryboard, Next: StageStoryboard.Next()}
	w.checkColumns(t, res)
	return res, nil
}

func parseStoryboardInput(content string) (*table.Table, error) {
	trimmed := bytes.TrimSpace([]byte(content))
	if len(trimmed) > 0 && trimmed[0] == '[' {
		t, err := table.ImportJSON(trimmed)
		if err != nil {
			return nil, &InputError{Field: "storyboard", Message: err.Error()}
		}
		return t, nil
	}
	return table.Parse(content), nil
}

// ExportStoryboard renders the storyboard as a JSON array of row objects.
func (w *Wizard) ExportStoryboard(sess *session.Session) ([]byte, error) {
	if sess.Storyboard.Empty() {
		return nil, &PrerequisiteError{Stage: StageStoryboard, Missing: StageStoryboard}
	}
	return sess.Storyboard.ExportJSON()
}

// checkColumns warns about configured columns the table lacks. Downstream
// stages read the scene, narration and description columns by name.
func (w *Wizard) checkColumns(t *table.Table, res *Result) {
	for _, c := range []string{w.Columns.Scene, w.Columns.Narration, w.Columns.Description} {
		if c != "" && !t.HasColumn(c) {
			res.warn("The storyboard has no %q column (columns: %s).", c, strings.Join(t.Columns, ", "))
		}
	}
}

// GenerateMetadata writes the title, description and tags. audience, when
// non-empty, replaces the stored target audience or style.
func (w *Wizard) GenerateMetadata(ctx context.Context, sess *session.Session, audience string) (*Result, error) {
	if err := CheckPrerequisites(sess, StageMetadata); err != nil {
		return nil, err
	}
	if a := strings.TrimSpace(audience); a != "" {
		sess.Audience = a
	}

	res := &Result{Stage: StageMetadata}
	if _, err := w.invoke(ctx, sess, call{
		stage: StageMetadata,
		task:  catalog.TaskMetadata,
		vars: prompt.Vars{
			"storyboard_summary_or_full_script": sess.Script,
			"target_audience_or_style":          sess.Audience,
		},
		temperature: metadataTemperature,
		maxTokens:   metadataMaxTokens,
	}, res); err != nil {
		return nil, err
	}

	sess.MetadataRaw = res.Text
	sess.Touch()
	if strings.TrimSpace(res.Text) == "" {
		res.warn("The model returned empty metadata; the previous metadata was kept.")
		return res, nil
	}
	sess.Metadata = res.Text
	res.Next = StageMetadata.Next()
	return res, nil
}

// SetMetadata replaces the metadata with user-edited text.
func (w *Wizard) SetMetadata(sess *session.Session, text string) *Result {
	if text != sess.Metadata {
		sess.Metadata = text
		sess.Touch()
	}
	return &Result{Stage: StageMetadata, Text: text, Next: StageMetadata.Next()}
}
