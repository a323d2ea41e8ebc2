package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jywlabs/scriptwiz/internal/catalog"
	"github.com/jywlabs/scriptwiz/internal/prompt"
	"github.com/jywlabs/scriptwiz/internal/session"
	"github.com/jywlabs/scriptwiz/internal/template"
)

// SourceScene is one scene of the translation source.
type SourceScene struct {
	SceneNumber string `json:"scene_number"`
	Narration   string `json:"narration"`
}

// TranslationSource is the editable input of the translation stage.
type TranslationSource struct {
	Scenes []SourceScene `json:"scenes"`
}

// Report is a generated report ready to be written to disk.
type Report struct {
	Language string
	FileName string
	Markdown string
}

// SeedTranslationSource fills the translation source from the storyboard and
// the metadata. Existing sources are kept unless force is set.
func (w *Wizard) SeedTranslationSource(sess *session.Session, force bool) (*Result, error) {
	if err := checkRequired(sess, StageTranslation, StageStoryboard, StageMetadata); err != nil {
		return nil, err
	}

	res := &Result{Stage: StageTranslation}
	if !force && strings.TrimSpace(sess.ScenesJSON) != "" && strings.TrimSpace(sess.MetadataSource) != "" {
		res.Text = sess.ScenesJSON
		return res, nil
	}

	src := TranslationSource{Scenes: []SourceScene{}}
	for _, s := range w.Scenes(sess) {
		src.Scenes = append(src.Scenes, SourceScene{SceneNumber: s.ID, Narration: s.Narration})
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(src); err != nil {
		return nil, fmt.Errorf("failed to encode translation source: %w", err)
	}

	sess.ScenesJSON = strings.TrimRight(buf.String(), "\n")
	sess.MetadataSource = sess.Metadata
	sess.Touch()
	res.Text = sess.ScenesJSON
	return res, nil
}

// SetTranslationSource stores user-edited translation input after validating it.
func (w *Wizard) SetTranslationSource(sess *session.Session, scenesJSON, metadata string) (*Result, error) {
	if err := ValidateTranslationSource(scenesJSON, metadata); err != nil {
		return nil, err
	}
	sess.ScenesJSON = scenesJSON
	sess.MetadataSource = metadata
	sess.Touch()
	return &Result{Stage: StageTranslation, Text: scenesJSON}, nil
}

// ValidateTranslationSource checks that scenesJSON is an object with a
// "scenes" list and that metadata is not blank.
func ValidateTranslationSource(scenesJSON, metadata string) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(scenesJSON), &doc); err != nil {
		return &InputError{Field: "scenes", Message: fmt.Sprintf("not a JSON object: %v", err)}
	}
	raw, ok := doc["scenes"]
	if !ok {
		return &InputError{Field: "scenes", Message: `missing "scenes" list`}
	}
	var scenes []json.RawMessage
	if err := json.Unmarshal(raw, &scenes); err != nil || scenes == nil {
		return &InputError{Field: "scenes", Message: `"scenes" must be a list`}
	}
	if strings.TrimSpace(metadata) == "" {
		return &InputError{Field: "metadata", Message: "video metadata must not be empty"}
	}
	return nil
}

// Language returns the configured spelling of lang. The source language is
// never a target.
func (w *Wizard) Language(lang string) (string, error) {
	lang = strings.TrimSpace(lang)
	if strings.EqualFold(lang, w.SourceLanguage) {
		return "", &InputError{Field: "language", Message: fmt.Sprintf("%s is the source language", w.SourceLanguage)}
	}
	for _, l := range w.Languages {
		if strings.EqualFold(l, lang) {
			return l, nil
		}
	}
	return "", &InputError{Field: "language", Message: fmt.Sprintf("unsupported language %q (available: %s)", lang, strings.Join(w.Languages, ", "))}
}

// GenerateReport translates the scenes and metadata into one language and
// formats them as a markdown report. A missing translation source is seeded
// first.
func (w *Wizard) GenerateReport(ctx context.Context, sess *session.Session, lang string) (*Result, error) {
	if err := CheckPrerequisites(sess, StageTranslation); err != nil {
		return nil, err
	}
	lang, err := w.Language(lang)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(sess.ScenesJSON) == "" || strings.TrimSpace(sess.MetadataSource) == "" {
		if _, err := w.SeedTranslationSource(sess, false); err != nil {
			return nil, err
		}
	}
	if err := ValidateTranslationSource(sess.ScenesJSON, sess.MetadataSource); err != nil {
		return nil, err
	}

	res := &Result{Stage: StageTranslation}
	if _, err := w.invoke(ctx, sess, call{
		stage: StageTranslation,
		task:  catalog.TaskTranslation,
		vars: prompt.Vars{
			"target_language":        lang,
			"storyboard_scenes_json": sess.ScenesJSON,
			"video_metadata_text":    sess.MetadataSource,
		},
		temperature: translationTemperature,
		maxTokens:   translationMaxTokens,
	}, res); err != nil {
		return nil, err
	}

	sess.Touch()
	if strings.TrimSpace(res.Text) == "" {
		res.warn("The model returned an empty %s report; the previous report was kept.", lang)
		return res, nil
	}
	sess.SetReport(lang, res.Text)
	return res, nil
}

// ExportReport returns the stored report for a language.
func (w *Wizard) ExportReport(sess *session.Session, lang string) (*Report, error) {
	lang, err := w.Language(lang)
	if err != nil {
		return nil, err
	}
	md, ok := sess.Reports[lang]
	if !ok {
		return nil, &InputError{Field: "language", Message: fmt.Sprintf("no %s report yet (run '%s')", lang, StageTranslation.Command())}
	}
	return &Report{Language: lang, FileName: template.ReportFileName(lang), Markdown: md}, nil
}
