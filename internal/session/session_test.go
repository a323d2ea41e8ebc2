package session

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/jywlabs/scriptwiz/internal/table"
)

func filled() *Session {
	s := New("abc")
	s.API = APIConfig{Provider: "OpenAI", APIKey: "sk-1234567890", BaseURL: "https://api.openai.com/v1", Model: "gpt-4o", Configured: true}
	s.Topic = "bees"
	s.Outline = "1. Intro"
	s.OutlineFeedback = "8/10"
	s.Script = "script"
	s.Storyboard = &table.Table{Columns: []string{"Scene", "Narration"}}
	s.Storyboard.Append("1", "你好")
	s.Metadata = "title"
	s.SetImagePrompt("1", "pan left")
	s.SetReport("English", "# Report")
	s.RecordRequest(RequestRecord{Task: "outline_generation", User: "u"})
	s.Confirm("outline")
	return s
}

func TestReset_KeepsOnlyAPI(t *testing.T) {
	s := filled()
	api := s.API
	created := s.CreatedAt

	s.Reset()

	if !reflect.DeepEqual(s.API, api) {
		t.Errorf("expected API config to survive reset, got %+v", s.API)
	}
	if s.ID != "abc" || !s.CreatedAt.Equal(created) {
		t.Error("expected identity to survive reset")
	}
	if s.Topic != "" || s.Outline != "" || s.Script != "" || s.Storyboard != nil || s.Metadata != "" {
		t.Error("expected text artifacts to be cleared")
	}
	if s.ImagePrompts != nil || s.Reports != nil || s.LastRequests != nil || s.Confirmed != nil {
		t.Error("expected maps to be cleared")
	}
}

func TestReset_Idempotent(t *testing.T) {
	s := filled()
	s.Reset()
	first, _ := json.Marshal(struct {
		API APIConfig
		T   string
	}{s.API, s.Topic})
	s.Reset()
	second, _ := json.Marshal(struct {
		API APIConfig
		T   string
	}{s.API, s.Topic})

	if string(first) != string(second) {
		t.Errorf("second reset changed state: %s vs %s", first, second)
	}
}

func TestMaskKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", ""},
		{"short", "*****"},
		{"sk-1234567890", "********7890"},
	}
	for _, tt := range tests {
		if got := MaskKey(tt.key); got != tt.want {
			t.Errorf("MaskKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}

	s := filled()
	if s.API.Redacted().APIKey == s.API.APIKey {
		t.Error("expected redacted key")
	}
	if s.API.APIKey != "sk-1234567890" {
		t.Error("Redacted must not modify the original")
	}
}

func TestClone_Deep(t *testing.T) {
	s := filled()
	c, err := s.Clone()
	if err != nil {
		t.Fatalf("Clone failed: %v", err)
	}

	c.ImagePrompts["1"] = "changed"
	c.Storyboard.Rows[0].Set("Narration", "changed")

	if s.ImagePrompts["1"] != "pan left" {
		t.Error("clone shares image prompt map")
	}
	if got, _ := s.Storyboard.Rows[0].Get("Narration"); got != "你好" {
		t.Error("clone shares storyboard rows")
	}
}

func TestTargetWords(t *testing.T) {
	s := New("x")
	if s.TargetWords() != DefaultWordCount {
		t.Errorf("expected default %d, got %d", DefaultWordCount, s.TargetWords())
	}
	s.WordCount = 1500
	if s.TargetWords() != 1500 {
		t.Errorf("expected 1500, got %d", s.TargetWords())
	}
}
