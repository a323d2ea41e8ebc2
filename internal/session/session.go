// Package session holds the artifacts the wizard produces for one project.
package session

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/jywlabs/scriptwiz/internal/table"
)

// DefaultID is the session used by the CLI when none is given.
const DefaultID = "default"

// DefaultWordCount is the script length target when none is set.
const DefaultWordCount = 1000

// APIConfig is the provider connection chosen in the configuration stage.
type APIConfig struct {
	Provider   string `json:"provider"`
	APIKey     string `json:"apiKey"`
	BaseURL    string `json:"baseUrl"`
	Model      string `json:"model"`
	Configured bool   `json:"configured"`
}

// Redacted returns a copy with the key masked.
func (a APIConfig) Redacted() APIConfig {
	a.APIKey = MaskKey(a.APIKey)
	return a
}

// MaskKey hides all but the last four characters of a key.
func MaskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", 8) + key[len(key)-4:]
}

// RequestRecord is the last request sent for a task, kept for inspection.
type RequestRecord struct {
	Task         string         `json:"task"`
	Model        string         `json:"model"`
	EntryKey     string         `json:"entryKey"`
	FallbackFrom string         `json:"fallbackFrom,omitempty"`
	System       string         `json:"system"`
	User         string         `json:"user"`
	Template     string         `json:"template"`
	Params       map[string]any `json:"params,omitempty"`
	Temperature  float64        `json:"temperature"`
	MaxTokens    int            `json:"maxTokens"`
	Image        string         `json:"image,omitempty"`
	At           time.Time      `json:"at"`
}

// Session is the state of one wizard run. Maps are created on first write.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	API APIConfig `json:"api"`

	Topic           string `json:"topic,omitempty"`
	Outline         string `json:"outline,omitempty"`
	OutlineFeedback string `json:"outlineFeedback,omitempty"`

	WordCount      int    `json:"wordCount,omitempty"`
	Script         string `json:"script,omitempty"`
	ScriptFeedback string `json:"scriptFeedback,omitempty"`

	Storyboard    *table.Table `json:"storyboard,omitempty"`
	StoryboardRaw string       `json:"storyboardRaw,omitempty"`

	Audience    string `json:"audience,omitempty"`
	Metadata    string `json:"metadata,omitempty"`
	MetadataRaw string `json:"metadataRaw,omitempty"`

	ImagePrompts map[string]string `json:"imagePrompts,omitempty"`
	SceneImages  map[string]string `json:"sceneImages,omitempty"`

	ScenesJSON     string            `json:"scenesJson,omitempty"`
	MetadataSource string            `json:"metadataSource,omitempty"`
	Reports        map[string]string `json:"reports,omitempty"`

	LastRequests map[string]RequestRecord `json:"lastRequests,omitempty"`
	Confirmed    map[string]time.Time     `json:"confirmed,omitempty"`
}

// New creates an empty session.
func New(id string) *Session {
	now := time.Now()
	return &Session{ID: id, CreatedAt: now, UpdatedAt: now}
}

// Reset clears every artifact and keeps only the API configuration.
func (s *Session) Reset() {
	*s = Session{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		UpdatedAt: time.Now(),
		API:       s.API,
	}
}

// Touch marks the session as modified.
func (s *Session) Touch() {
	s.UpdatedAt = time.Now()
}

// TargetWords returns the script length target.
func (s *Session) TargetWords() int {
	if s.WordCount > 0 {
		return s.WordCount
	}
	return DefaultWordCount
}

// SetImagePrompt stores the prompt for a scene.
func (s *Session) SetImagePrompt(scene, prompt string) {
	if s.ImagePrompts == nil {
		s.ImagePrompts = make(map[string]string)
	}
	s.ImagePrompts[scene] = prompt
}

// SetSceneImage records the reference image used for a scene.
func (s *Session) SetSceneImage(scene, name string) {
	if s.SceneImages == nil {
		s.SceneImages = make(map[string]string)
	}
	s.SceneImages[scene] = name
}

// SetReport stores the report for a language.
func (s *Session) SetReport(lang, markdown string) {
	if s.Reports == nil {
		s.Reports = make(map[string]string)
	}
	s.Reports[lang] = markdown
}

// RecordRequest keeps the request sent for a task.
func (s *Session) RecordRequest(rec RequestRecord) {
	if s.LastRequests == nil {
		s.LastRequests = make(map[string]RequestRecord)
	}
	s.LastRequests[rec.Task] = rec
}

// Confirm records that the user approved a stage.
func (s *Session) Confirm(stage string) time.Time {
	if s.Confirmed == nil {
		s.Confirmed = make(map[string]time.Time)
	}
	now := time.Now()
	s.Confirmed[stage] = now
	return now
}

// Clone returns a deep copy.
func (s *Session) Clone() (*Session, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var out Session
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
