// Package pipeline runs the wizard stages: each stage checks that its
// upstream artifacts exist, optionally calls the model, and writes its own
// artifact back to the session.
package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/jywlabs/scriptwiz/internal/session"
)

// Stage identifies a wizard step.
type Stage string

// Valid stages, in wizard order.
const (
	StageConfiguration Stage = "configuration"
	StageOutline       Stage = "outline"
	StageScript        Stage = "script"
	StageStoryboard    Stage = "storyboard"
	StageMetadata      Stage = "metadata"
	StageImagePrompts  Stage = "imageprompts"
	StageTranslation   Stage = "translation"
)

// Stages lists every stage in order.
var Stages = []Stage{
	StageConfiguration,
	StageOutline,
	StageScript,
	StageStoryboard,
	StageMetadata,
	StageImagePrompts,
	StageTranslation,
}

type stageInfo struct {
	title    string
	command  string // CLI command that completes the stage
	requires []Stage
	next     []Stage
}

var stageTable = map[Stage]stageInfo{
	StageConfiguration: {
		title:   "API configuration",
		command: "scriptwiz config set",
		next:    []Stage{StageOutline},
	},
	StageOutline: {
		title:    "Outline",
		command:  "scriptwiz outline generate",
		requires: []Stage{StageConfiguration},
		next:     []Stage{StageScript},
	},
	StageScript: {
		title:    "Narration script",
		command:  "scriptwiz script generate",
		requires: []Stage{StageConfiguration, StageOutline},
		next:     []Stage{StageStoryboard},
	},
	StageStoryboard: {
		title:    "Storyboard",
		command:  "scriptwiz storyboard generate",
		requires: []Stage{StageConfiguration, StageScript},
		next:     []Stage{StageMetadata},
	},
	StageMetadata: {
		title:    "Video metadata",
		command:  "scriptwiz metadata generate",
		requires: []Stage{StageConfiguration, StageStoryboard, StageScript},
		next:     []Stage{StageImagePrompts, StageTranslation},
	},
	StageImagePrompts: {
		title:    "Image-to-video prompts",
		command:  "scriptwiz i2v generate",
		requires: []Stage{StageConfiguration, StageStoryboard, StageMetadata},
	},
	StageTranslation: {
		title:    "Translated reports",
		command:  "scriptwiz translate generate",
		requires: []Stage{StageConfiguration, StageStoryboard, StageMetadata},
	},
}

// ParseStage converts a name to a Stage.
func ParseStage(name string) (Stage, error) {
	s := Stage(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := stageTable[s]; !ok {
		names := make([]string, len(Stages))
		for i, st := range Stages {
			names[i] = string(st)
		}
		return "", fmt.Errorf("unknown stage %q (valid: %s)", name, strings.Join(names, ", "))
	}
	return s, nil
}

// Title returns a human-readable name.
func (s Stage) Title() string {
	return stageTable[s].title
}

// Command returns the CLI command that completes the stage.
func (s Stage) Command() string {
	return stageTable[s].command
}

// Requires returns the stages whose artifacts must exist first.
func (s Stage) Requires() []Stage {
	return stageTable[s].requires
}

// Next returns the stages to visit after this one.
func (s Stage) Next() []Stage {
	return stageTable[s].next
}

// Complete reports whether the stage's artifact exists in the session.
func (s Stage) Complete(sess *session.Session) bool {
	switch s {
	case StageConfiguration:
		return sess.API.Configured
	case StageOutline:
		return strings.TrimSpace(sess.Outline) != ""
	case StageScript:
		return strings.TrimSpace(sess.Script) != ""
	case StageStoryboard:
		return !sess.Storyboard.Empty()
	case StageMetadata:
		return strings.TrimSpace(sess.Metadata) != ""
	case StageImagePrompts:
		return len(sess.ImagePrompts) > 0
	case StageTranslation:
		return len(sess.Reports) > 0
	}
	return false
}

// PrerequisiteError means an upstream stage has not produced its artifact.
type PrerequisiteError struct {
	Stage   Stage
	Missing Stage
}

func (e *PrerequisiteError) Error() string {
	return fmt.Sprintf("%s is not available yet: %s is missing (run '%s' first)",
		e.Stage.Title(), strings.ToLower(e.Missing.Title()), e.Missing.Command())
}

// Command returns the command that unblocks the stage.
func (e *PrerequisiteError) Command() string {
	return e.Missing.Command()
}

// CheckPrerequisites returns a *PrerequisiteError naming the first missing
// upstream artifact, or nil.
func CheckPrerequisites(sess *session.Session, stage Stage) error {
	return checkRequired(sess, stage, stage.Requires()...)
}

func checkRequired(sess *session.Session, stage Stage, required ...Stage) error {
	for _, req := range required {
		if !req.Complete(sess) {
			return &PrerequisiteError{Stage: stage, Missing: req}
		}
	}
	return nil
}

// StageStatus summarizes one stage for display.
type StageStatus struct {
	Stage     Stage     `json:"stage"`
	Title     string    `json:"title"`
	Complete  bool      `json:"complete"`
	Ready     bool      `json:"ready"`
	BlockedBy Stage     `json:"blockedBy,omitempty"`
	Command   string    `json:"command"`
	Confirmed time.Time `json:"confirmed,omitempty"`
}

// Status reports every stage in order.
func Status(sess *session.Session) []StageStatus {
	out := make([]StageStatus, 0, len(Stages))
	for _, s := range Stages {
		st := StageStatus{
			Stage:    s,
			Title:    s.Title(),
			Complete: s.Complete(sess),
			Ready:    true,
			Command:  s.Command(),
		}
		if err := CheckPrerequisites(sess, s); err != nil {
			st.Ready = false
			st.BlockedBy = err.(*PrerequisiteError).Missing
		}
		if t, ok := sess.Confirmed[string(s)]; ok {
			st.Confirmed = t
		}
		out = append(out, st)
	}
	return out
}
