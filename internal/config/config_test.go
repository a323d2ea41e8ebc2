package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jywlabs/scriptwiz/internal/template"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, template.ConfigFile), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	def := Default()
	if cfg.PromptsFile != def.PromptsFile {
		t.Errorf("PromptsFile = %q, want %q", cfg.PromptsFile, def.PromptsFile)
	}
	if cfg.Columns != def.Columns {
		t.Errorf("Columns = %+v, want %+v", cfg.Columns, def.Columns)
	}
	if len(cfg.Translation.Languages) != 6 {
		t.Errorf("Languages length = %d, want 6", len(cfg.Translation.Languages))
	}
}

func TestLoad_EmbeddedDefaultMatchesDefault(t *testing.T) {
	cfg, err := Load(writeConfig(t, template.DefaultConfig))
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	def := Default()
	if cfg.Storage != def.Storage || cfg.Log != def.Log || cfg.LLMTimeout != def.LLMTimeout {
		t.Errorf("embedded config differs from defaults: %+v", cfg)
	}
	if cfg.Server != def.Server {
		t.Errorf("Server = %+v, want %+v", cfg.Server, def.Server)
	}
	if strings.Join(cfg.Translation.Languages, ",") != strings.Join(def.Translation.Languages, ",") {
		t.Errorf("Languages = %v, want %v", cfg.Translation.Languages, def.Translation.Languages)
	}
}

func TestLoad_Overrides(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		check func(t *testing.T, cfg *Config)
	}{
		{
			name: "partial config keeps other defaults",
			yaml: "llm:\n  timeout: 45s\n",
			check: func(t *testing.T, cfg *Config) {
				if cfg.LLMTimeout != 45*time.Second {
					t.Errorf("LLMTimeout = %v, want 45s", cfg.LLMTimeout)
				}
				if cfg.Storage.Backend != "file" {
					t.Errorf("Storage.Backend = %q, want file", cfg.Storage.Backend)
				}
			},
		},
		{
			name: "custom columns",
			yaml: "storyboard:\n  columns:\n    scene: 镜头\n    narration: 旁白\n    imagePrompt: 画面提示词\n",
			check: func(t *testing.T, cfg *Config) {
				if cfg.Columns.Scene != "镜头" || cfg.Columns.ImagePrompt != "画面提示词" {
					t.Errorf("Columns = %+v", cfg.Columns)
				}
				if cfg.Columns.Description != "Description" {
					t.Errorf("Description column should keep default, got %q", cfg.Columns.Description)
				}
			},
		},
		{
			name: "explicit false and zero",
			yaml: "server:\n  watchPrompts: false\n  rateLimit: 0\n",
			check: func(t *testing.T, cfg *Config) {
				if cfg.Server.WatchPrompts {
					t.Error("WatchPrompts should be false")
				}
				if cfg.Server.RateLimit != 0 {
					t.Errorf("RateLimit = %v, want 0", cfg.Server.RateLimit)
				}
			},
		},
		{
			name: "languages replaced",
			yaml: "translation:\n  languages: [Korean]\n",
			check: func(t *testing.T, cfg *Config) {
				if len(cfg.Translation.Languages) != 1 || cfg.Translation.Languages[0] != "Korean" {
					t.Errorf("Languages = %v", cfg.Translation.Languages)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tt.yaml))
			if err != nil {
				t.Fatalf("Load() unexpected error: %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"bad backend", "storage:\n  backend: mongo\n", "storage.backend"},
		{"postgres without dsn", "storage:\n  backend: postgres\n", "storage.dsn"},
		{"bad timeout", "llm:\n  timeout: soon\n", "llm.timeout"},
		{"empty prompts file", "promptsFile: \"\"\n", "promptsFile"},
		{"empty scene column", "storyboard:\n  columns:\n    scene: \"\"\n", "storyboard.columns"},
		{"negative rate", "server:\n  rateLimit: -1\n", "rateLimit"},
		{"malformed yaml", "storage: [\n", "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestPromptsPath(t *testing.T) {
	cfg := Default()
	if got := cfg.PromptsPath("/p"); got != filepath.Join("/p", "prompts.yaml") {
		t.Errorf("PromptsPath = %q", got)
	}
	cfg.PromptsFile = "/abs/prompts.yaml"
	if got := cfg.PromptsPath("/p"); got != "/abs/prompts.yaml" {
		t.Errorf("PromptsPath = %q", got)
	}
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, template.EnvFile), []byte(APIKeyEnv+"=sk-from-env\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(APIKeyEnv, "")
	os.Unsetenv(APIKeyEnv)

	if err := LoadEnv(dir); err != nil {
		t.Fatalf("LoadEnv failed: %v", err)
	}
	if got := APIKeyFromEnv(); got != "sk-from-env" {
		t.Errorf("APIKeyFromEnv = %q, want sk-from-env", got)
	}
}

func TestLoadEnv_ExistingWins(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, template.EnvFile), []byte(APIKeyEnv+"=sk-from-file\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(APIKeyEnv, "sk-from-shell")

	if err := LoadEnv(dir); err != nil {
		t.Fatalf("LoadEnv failed: %v", err)
	}
	if got := APIKeyFromEnv(); got != "sk-from-shell" {
		t.Errorf("APIKeyFromEnv = %q, want sk-from-shell", got)
	}
}

func TestSetupLogging(t *testing.T) {
	defer logrus.SetOutput(os.Stderr)
	defer logrus.SetLevel(logrus.InfoLevel)

	path := filepath.Join(t.TempDir(), "scriptwiz.log")
	closer, err := SetupLogging(LogConfig{Level: "warn", File: path}, false)
	if err != nil {
		t.Fatalf("SetupLogging failed: %v", err)
	}
	if logrus.GetLevel() != logrus.WarnLevel {
		t.Errorf("level = %v, want warn", logrus.GetLevel())
	}
	logrus.Warn("hello")
	closer.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Errorf("log file missing entry: %s", data)
	}

	if _, err := SetupLogging(LogConfig{Level: "loud"}, false); err == nil {
		t.Error("expected error for unknown level")
	}

	closer, err = SetupLogging(LogConfig{Level: "error"}, true)
	if err != nil {
		t.Fatal(err)
	}
	closer.Close()
	if logrus.GetLevel() != logrus.DebugLevel {
		t.Error("verbose should force debug level")
	}
}
