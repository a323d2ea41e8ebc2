package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jywlabs/scriptwiz/internal/storage"
	"github.com/jywlabs/scriptwiz/internal/template"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize .scriptwiz/ directory",
	Long: `Initialize the .scriptwiz/ directory in the current directory.

Creates:
  .scriptwiz/
    config.yaml     # Storage, logging, columns and languages
    prompts.yaml    # Providers and prompt templates per task
    .env.example    # Copy to .env and set SCRIPTWIZ_API_KEY
    sessions/       # Saved wizard sessions
    exports/        # Exported storyboards, prompts and reports

After init, run 'scriptwiz config set' to choose a provider.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	return initProject(dirFlag, cmd.OutOrStdout())
}

func initProject(dir string, out io.Writer) error {
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("%s already exists", dir)
	}

	for _, sub := range []string{storage.SessionsDir, template.ExportsDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0755); err != nil {
			return fmt.Errorf("failed to create directories: %w", err)
		}
	}

	for filename, content := range template.DefaultFiles() {
		filePath := filepath.Join(dir, filename)
		if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", filename, err)
		}
	}

	fmt.Fprintf(out, "Initialized %s/\n", dir)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Created:")
	fmt.Fprintf(out, "  %s   - Storage, logging, columns and languages\n", filepath.Join(dir, template.ConfigFile))
	fmt.Fprintf(out, "  %s  - Providers and prompt templates\n", filepath.Join(dir, template.PromptsFile))
	fmt.Fprintf(out, "  %s  - Environment template for the API key\n", filepath.Join(dir, template.EnvExampleFile))
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, "  1. scriptwiz config providers")
	fmt.Fprintln(out, "  2. scriptwiz config set --provider OpenAI --model gpt-4o --api-key sk-...")
	fmt.Fprintln(out, "  3. scriptwiz outline generate \"your video topic\"")

	return nil
}
