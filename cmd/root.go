package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jywlabs/scriptwiz/internal/session"
	"github.com/jywlabs/scriptwiz/internal/template"
)

// Global flags
var (
	dirFlag     string
	sessionFlag string
	verboseFlag bool
	dryRunFlag  bool
)

var rootCmd = &cobra.Command{
	Use:   "scriptwiz",
	Short: "scriptwiz - YouTube script wizard driven by an LLM",
	Long: `scriptwiz walks a video idea through an outline, a narration script,
a storyboard, video metadata, image-to-video prompts and translated reports,
using any OpenAI-compatible chat completion API.

Workflow:
  scriptwiz init                          Create .scriptwiz/ with default prompts
  scriptwiz config set --provider OpenAI  Choose provider, API key and model
  scriptwiz outline generate "topic"      Generate the outline
  scriptwiz script generate --words 1200  Write the narration script
  scriptwiz storyboard generate           Split the script into scenes
  scriptwiz metadata generate             Titles, description and tags
  scriptwiz i2v generate --all            Image-to-video prompt per scene
  scriptwiz translate generate --all      Markdown report per language

Every stage can be regenerated or edited at any time; 'scriptwiz status'
shows which stages are ready.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dirFlag, "dir", template.ProjectDir, "Project directory")
	rootCmd.PersistentFlags().StringVarP(&sessionFlag, "session", "s", session.DefaultID, "Session id")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Verbose logging")
	rootCmd.PersistentFlags().BoolVar(&dryRunFlag, "dry-run", false, "Answer every request locally without calling the API")
}
