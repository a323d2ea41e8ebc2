package template

import (
	_ "embed"
)

//go:embed prompts.yaml
var DefaultPrompts string

//go:embed config.yaml
var DefaultConfig string

//go:embed env.example
var DefaultEnvExample string

// ProjectDir is the name of the scriptwiz project directory.
const ProjectDir = ".scriptwiz"

// File name constants for consistent usage across the codebase.
const (
	ConfigFile     = "config.yaml"
	PromptsFile    = "prompts.yaml"
	EnvFile        = ".env"
	EnvExampleFile = ".env.example"
	ExportsDir     = "exports"

	StoryboardExportFile  = "storyboard_script.json"
	ImagePromptExportFile = "image_to_video_prompts.json"
)

// ReportFileName returns the export file name for a translated report.
func ReportFileName(lang string) string {
	return "video_script_report_" + lang + ".md"
}

// DefaultFiles returns the default files to create in .scriptwiz/
func DefaultFiles() map[string]string {
	return map[string]string{
		ConfigFile:     DefaultConfig,
		PromptsFile:    DefaultPrompts,
		EnvExampleFile: DefaultEnvExample,
	}
}
