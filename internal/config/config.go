// Package config reads .scriptwiz/config.yaml and the .env files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jywlabs/scriptwiz/internal/template"
)

// APIKeyEnv supplies the API key when none is given on the command line.
const APIKeyEnv = "SCRIPTWIZ_API_KEY"

// Columns names the storyboard table columns the wizard reads.
type Columns struct {
	Scene       string `yaml:"scene"`
	Narration   string `yaml:"narration"`
	ImagePrompt string `yaml:"imagePrompt"`
	Description string `yaml:"description"`
}

// Config is the merged configuration.
type Config struct {
	PromptsFile string
	Storage     StorageConfig
	Log         LogConfig
	LLMTimeout  time.Duration
	Columns     Columns
	Translation TranslationConfig
	Server      ServerConfig
}

// StorageConfig selects the session store.
type StorageConfig struct {
	Backend string
	DSN     string
}

// LogConfig controls logrus output.
type LogConfig struct {
	Level string
	File  string
}

// TranslationConfig lists the report languages.
type TranslationConfig struct {
	SourceLanguage string
	Languages      []string
}

// ServerConfig configures `scriptwiz serve`.
type ServerConfig struct {
	Addr         string
	RateLimit    float64
	Burst        int
	WatchPrompts bool
}

// rawConfig is used for YAML unmarshaling to distinguish missing keys from explicit empty values.
type rawConfig struct {
	PromptsFile *string `yaml:"promptsFile"`
	Storage     struct {
		Backend *string `yaml:"backend"`
		DSN     *string `yaml:"dsn"`
	} `yaml:"storage"`
	Log struct {
		Level *string `yaml:"level"`
		File  *string `yaml:"file"`
	} `yaml:"log"`
	LLM struct {
		Timeout *string `yaml:"timeout"`
	} `yaml:"llm"`
	Storyboard struct {
		Columns struct {
			Scene       *string `yaml:"scene"`
			Narration   *string `yaml:"narration"`
			ImagePrompt *string `yaml:"imagePrompt"`
			Description *string `yaml:"description"`
		} `yaml:"columns"`
	} `yaml:"storyboard"`
	Translation struct {
		SourceLanguage *string  `yaml:"sourceLanguage"`
		Languages      []string `yaml:"languages"`
	} `yaml:"translation"`
	Server struct {
		Addr         *string  `yaml:"addr"`
		RateLimit    *float64 `yaml:"rateLimit"`
		Burst        *int     `yaml:"burst"`
		WatchPrompts *bool    `yaml:"watchPrompts"`
	} `yaml:"server"`
}

// Default returns the configuration used when config.yaml is missing.
func Default() Config {
	return Config{
		PromptsFile: template.PromptsFile,
		Storage:     StorageConfig{Backend: "file"},
		Log:         LogConfig{Level: "info"},
		LLMTimeout:  3 * time.Minute,
		Columns: Columns{
			Scene:       "Scene",
			Narration:   "Narration",
			ImagePrompt: "Image Prompt",
			Description: "Description",
		},
		Translation: TranslationConfig{
			SourceLanguage: "Simplified Chinese",
			Languages:      []string{"English", "French", "German", "Spanish", "Portuguese", "Japanese"},
		},
		Server: ServerConfig{
			Addr:         ":8080",
			RateLimit:    2,
			Burst:        4,
			WatchPrompts: true,
		},
	}
}

// Validate checks that the merged fields are usable.
func (c *Config) Validate() error {
	if c.PromptsFile == "" {
		return fmt.Errorf("promptsFile must not be empty")
	}
	switch c.Storage.Backend {
	case "file", "sqlite", "libsql", "postgres":
	default:
		return fmt.Errorf("storage.backend must be one of file, sqlite, libsql, postgres (got %q)", c.Storage.Backend)
	}
	if (c.Storage.Backend == "libsql" || c.Storage.Backend == "postgres") && c.Storage.DSN == "" {
		return fmt.Errorf("storage.dsn is required for the %s backend", c.Storage.Backend)
	}
	if c.LLMTimeout <= 0 {
		return fmt.Errorf("llm.timeout must be greater than 0")
	}
	if c.Columns.Scene == "" || c.Columns.Narration == "" || c.Columns.ImagePrompt == "" {
		return fmt.Errorf("storyboard.columns scene, narration and imagePrompt must not be empty")
	}
	if len(c.Translation.Languages) == 0 {
		return fmt.Errorf("translation.languages must list at least one language")
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rateLimit must not be negative")
	}
	if c.Server.RateLimit > 0 && c.Server.Burst <= 0 {
		return fmt.Errorf("server.burst must be greater than 0 when rateLimit is set")
	}
	return nil
}

// Load reads config.yaml from the project directory. If the file doesn't
// exist, defaults are returned.
func Load(projectDir string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filepath.Join(projectDir, template.ConfigFile))
	if err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, err
	}

	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", template.ConfigFile, err)
	}

	// Merge with defaults: only apply default when key was not set in YAML
	setString(&cfg.PromptsFile, raw.PromptsFile)
	setString(&cfg.Storage.Backend, raw.Storage.Backend)
	setString(&cfg.Storage.DSN, raw.Storage.DSN)
	setString(&cfg.Log.Level, raw.Log.Level)
	setString(&cfg.Log.File, raw.Log.File)
	if raw.LLM.Timeout != nil {
		d, err := time.ParseDuration(*raw.LLM.Timeout)
		if err != nil {
			return nil, fmt.Errorf("llm.timeout: %w", err)
		}
		cfg.LLMTimeout = d
	}
	setString(&cfg.Columns.Scene, raw.Storyboard.Columns.Scene)
	setString(&cfg.Columns.Narration, raw.Storyboard.Columns.Narration)
	setString(&cfg.Columns.ImagePrompt, raw.Storyboard.Columns.ImagePrompt)
	setString(&cfg.Columns.Description, raw.Storyboard.Columns.Description)
	setString(&cfg.Translation.SourceLanguage, raw.Translation.SourceLanguage)
	if len(raw.Translation.Languages) > 0 {
		cfg.Translation.Languages = raw.Translation.Languages
	}
	setString(&cfg.Server.Addr, raw.Server.Addr)
	if raw.Server.RateLimit != nil {
		cfg.Server.RateLimit = *raw.Server.RateLimit
	}
	if raw.Server.Burst != nil {
		cfg.Server.Burst = *raw.Server.Burst
	}
	if raw.Server.WatchPrompts != nil {
		cfg.Server.WatchPrompts = *raw.Server.WatchPrompts
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// PromptsPath resolves the prompts file against the project directory.
func (c *Config) PromptsPath(projectDir string) string {
	if filepath.IsAbs(c.PromptsFile) {
		return c.PromptsFile
	}
	return filepath.Join(projectDir, c.PromptsFile)
}

// LoadEnv loads .env from the working directory and the project directory.
// Variables already set in the environment win; missing files are ignored.
func LoadEnv(projectDir string) error {
	for _, path := range []string{template.EnvFile, filepath.Join(projectDir, template.EnvFile)} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// APIKeyFromEnv returns the key supplied through the environment.
func APIKeyFromEnv() string {
	return os.Getenv(APIKeyEnv)
}
