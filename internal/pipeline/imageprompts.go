package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/jywlabs/scriptwiz/internal/catalog"
	"github.com/jywlabs/scriptwiz/internal/llm"
	"github.com/jywlabs/scriptwiz/internal/prompt"
	"github.com/jywlabs/scriptwiz/internal/session"
	"github.com/jywlabs/scriptwiz/internal/table"
)

const noDescription = "no description"

// Scene is one storyboard row as seen by the image-to-video stage.
type Scene struct {
	ID          string `json:"id"`
	Narration   string `json:"narration"`
	Description string `json:"description"`
	ImagePrompt string `json:"imagePrompt,omitempty"`
	Image       string `json:"image,omitempty"`
}

// Scenes lists the storyboard scenes with their generated prompts. A row
// without a scene number is identified by its position, starting at 1.
func (w *Wizard) Scenes(sess *session.Session) []Scene {
	if sess.Storyboard.Empty() {
		return nil
	}
	out := make([]Scene, 0, len(sess.Storyboard.Rows))
	for i, rec := range sess.Storyboard.Rows {
		id := w.sceneID(i, rec)
		narration, _ := rec.Get(w.Columns.Narration)
		description, _ := rec.Get(w.Columns.Description)
		out = append(out, Scene{
			ID:          id,
			Narration:   narration,
			Description: description,
			ImagePrompt: sess.ImagePrompts[id],
			Image:       sess.SceneImages[id],
		})
	}
	return out
}

func (w *Wizard) sceneID(i int, rec table.Record) string {
	if v, ok := rec.Get(w.Columns.Scene); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return strconv.Itoa(i + 1)
}

func (w *Wizard) findScene(sess *session.Session, id string) (Scene, error) {
	id = strings.TrimSpace(id)
	for _, s := range w.Scenes(sess) {
		if s.ID == id {
			return s, nil
		}
	}
	return Scene{}, &InputError{Field: "scene", Message: fmt.Sprintf("scene %q is not in the storyboard", id)}
}

// GenerateImagePrompt writes the image-to-video prompt for one scene. image is
// an optional reference frame sent along with the prompt.
func (w *Wizard) GenerateImagePrompt(ctx context.Context, sess *session.Session, sceneID string, image *llm.Image) (*Result, error) {
	if err := CheckPrerequisites(sess, StageImagePrompts); err != nil {
		return nil, err
	}
	scene, err := w.findScene(sess, sceneID)
	if err != nil {
		return nil, err
	}
	description := strings.TrimSpace(scene.Description)
	if description == "" {
		description = noDescription
	}

	res := &Result{Stage: StageImagePrompts}
	if _, err := w.invoke(ctx, sess, call{
		stage:       StageImagePrompts,
		task:        catalog.TaskImagePrompt,
		vars:        prompt.Vars{"scene_description": description},
		temperature: imagePromptTemperature,
		maxTokens:   imagePromptMaxTokens,
		image:       image,
	}, res); err != nil {
		return nil, err
	}

	if image != nil {
		sess.SetSceneImage(scene.ID, image.Name)
	}
	sess.Touch()
	if strings.TrimSpace(res.Text) == "" {
		res.warn("The model returned an empty prompt for scene %s; the previous prompt was kept.", scene.ID)
		return res, nil
	}
	sess.SetImagePrompt(scene.ID, strings.TrimSpace(res.Text))
	return res, nil
}

// SetImagePrompt stores a user-edited prompt for one scene.
func (w *Wizard) SetImagePrompt(sess *session.Session, sceneID, text string) (*Result, error) {
	scene, err := w.findScene(sess, sceneID)
	if err != nil {
		return nil, err
	}
	sess.SetImagePrompt(scene.ID, text)
	sess.Touch()
	return &Result{Stage: StageImagePrompts, Text: text}, nil
}

// ExportImagePrompts renders the scene -> prompt map as a pretty-printed JSON
// object in storyboard order. Prompts for scenes no longer in the storyboard
// follow at the end.
func (w *Wizard) ExportImagePrompts(sess *session.Session) ([]byte, error) {
	if len(sess.ImagePrompts) == 0 {
		return nil, &PrerequisiteError{Stage: StageImagePrompts, Missing: StageImagePrompts}
	}

	var ids, prompts []string
	seen := make(map[string]bool)
	for _, s := range w.Scenes(sess) {
		if p, ok := sess.ImagePrompts[s.ID]; ok && !seen[s.ID] {
			ids = append(ids, s.ID)
			prompts = append(prompts, p)
			seen[s.ID] = true
		}
	}
	for _, id := range slices.Sorted(maps.Keys(sess.ImagePrompts)) {
		if !seen[id] {
			ids = append(ids, id)
			prompts = append(prompts, sess.ImagePrompts[id])
		}
	}

	compact, err := table.NewRecord(ids, prompts).MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to encode prompts: %w", err)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, compact, "", "    "); err != nil {
		return nil, fmt.Errorf("failed to encode prompts: %w", err)
	}
	return buf.Bytes(), nil
}
