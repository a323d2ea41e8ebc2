package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jywlabs/scriptwiz/internal/pipeline"
)

var (
	langFlags        []string
	allLangsFlag     bool
	forceSourceFlag  bool
	scenesFileFlag   string
	sourceMetaFlag   string
	translateOutFlag string
)

var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "Translated markdown reports",
}

var translateSourceCmd = &cobra.Command{
	Use:   "source",
	Short: "Show or edit the translation source",
	Long: `Show the translation source: the scene narration as JSON and the video
metadata. The source is seeded from the storyboard and metadata on first use.

Examples:
  scriptwiz translate source                         # show (seeds if missing)
  scriptwiz translate source --force                 # reseed from the storyboard
  scriptwiz translate source --scenes scenes.json --metadata meta.txt`,
	Args: cobra.NoArgs,
	RunE: withProject(runTranslateSource),
}

var translateGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate reports for one or more languages",
	Long: `Translate the source into the given languages and format each as a markdown report.

Examples:
  scriptwiz translate generate --lang English
  scriptwiz translate generate --lang French --lang German
  scriptwiz translate generate --all`,
	Args: cobra.NoArgs,
	RunE: withProject(runTranslateGenerate),
}

var translateShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show generated reports",
	Args:  cobra.NoArgs,
	RunE:  withProject(runTranslateShow),
}

var translateExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write reports as markdown files",
	Args:  cobra.NoArgs,
	RunE:  withProject(runTranslateExport),
}

var translateLanguagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List target languages",
	Args:  cobra.NoArgs,
	RunE:  withProject(runTranslateLanguages),
}

func init() {
	translateSourceCmd.Flags().BoolVar(&forceSourceFlag, "force", false, "Reseed from the storyboard and metadata")
	translateSourceCmd.Flags().StringVar(&scenesFileFlag, "scenes", "", "Read the scenes JSON from a file")
	translateSourceCmd.Flags().StringVar(&sourceMetaFlag, "metadata", "", "Read the metadata text from a file")

	for _, c := range []*cobra.Command{translateGenerateCmd, translateShowCmd, translateExportCmd} {
		c.Flags().StringSliceVarP(&langFlags, "lang", "l", nil, "Target language (repeatable)")
		c.Flags().BoolVar(&allLangsFlag, "all", false, "Every configured language")
	}
	translateExportCmd.Flags().StringVarP(&translateOutFlag, "out", "o", "", "Output directory (default: exports/)")

	translateCmd.AddCommand(translateSourceCmd, translateGenerateCmd, translateShowCmd, translateExportCmd, translateLanguagesCmd)
	rootCmd.AddCommand(translateCmd)
}

// selectedLanguages resolves --lang and --all. When reports exist, --all on
// show and export means the generated ones.
func selectedLanguages(p *project, generated bool) ([]string, error) {
	if allLangsFlag {
		if !generated {
			return p.wizard.Languages, nil
		}
		var out []string
		for _, l := range p.wizard.Languages {
			if _, ok := p.sess.Reports[l]; ok {
				out = append(out, l)
			}
		}
		return out, nil
	}
	if len(langFlags) == 0 {
		return nil, fmt.Errorf("use --lang or --all (available: %s)", strings.Join(p.wizard.Languages, ", "))
	}
	out := make([]string, 0, len(langFlags))
	for _, l := range langFlags {
		lang, err := p.wizard.Language(l)
		if err != nil {
			return nil, err
		}
		out = append(out, lang)
	}
	return out, nil
}

func runTranslateSource(cmd *cobra.Command, p *project, args []string) error {
	if scenesFileFlag != "" || sourceMetaFlag != "" {
		scenes, metadata := p.sess.ScenesJSON, p.sess.MetadataSource
		if scenesFileFlag != "" {
			data, err := os.ReadFile(scenesFileFlag)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", scenesFileFlag, err)
			}
			scenes = string(data)
		}
		if sourceMetaFlag != "" {
			data, err := os.ReadFile(sourceMetaFlag)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", sourceMetaFlag, err)
			}
			metadata = string(data)
		}
		if _, err := p.wizard.SetTranslationSource(p.sess, scenes, metadata); err != nil {
			return err
		}
		p.display.ShowSuccess("Translation source saved")
	} else if _, err := p.wizard.SeedTranslationSource(p.sess, forceSourceFlag); err != nil {
		return err
	}

	p.display.ShowArtifact("Scenes (JSON)", p.sess.ScenesJSON)
	p.display.ShowArtifact("Metadata", p.sess.MetadataSource)
	return nil
}

func runTranslateGenerate(cmd *cobra.Command, p *project, args []string) error {
	langs, err := selectedLanguages(p, false)
	if err != nil {
		return err
	}
	p.display.ShowCommandHeader("Translated reports", strings.Join(langs, ", "))
	for _, lang := range langs {
		if _, err := p.run("translating to "+lang+"...", func() (*pipeline.Result, error) {
			return p.wizard.GenerateReport(cmd.Context(), p.sess, lang)
		}); err != nil {
			return err
		}
		p.display.ShowSuccess("%s report ready", lang)
	}
	p.display.ShowInfo("\nNext: scriptwiz translate export --all\n")
	return nil
}

func runTranslateShow(cmd *cobra.Command, p *project, args []string) error {
	langs, err := selectedLanguages(p, true)
	if err != nil {
		return err
	}
	for _, lang := range langs {
		r, err := p.wizard.ExportReport(p.sess, lang)
		if err != nil {
			return err
		}
		p.display.ShowArtifact(r.Language, r.Markdown)
	}
	return nil
}

func runTranslateExport(cmd *cobra.Command, p *project, args []string) error {
	langs, err := selectedLanguages(p, true)
	if err != nil {
		return err
	}
	if len(langs) == 0 {
		return fmt.Errorf("no reports yet (run '%s')", pipeline.StageTranslation.Command())
	}
	for _, lang := range langs {
		r, err := p.wizard.ExportReport(p.sess, lang)
		if err != nil {
			return err
		}
		path := ""
		if translateOutFlag != "" {
			path = filepath.Join(translateOutFlag, r.FileName)
		}
		written, err := p.writeExport(path, r.FileName, []byte(r.Markdown))
		if err != nil {
			return err
		}
		p.display.ShowSuccess("%s report exported to %s", r.Language, written)
	}
	return nil
}

func runTranslateLanguages(cmd *cobra.Command, p *project, args []string) error {
	rows := make([][]string, 0, len(p.wizard.Languages))
	for _, l := range p.wizard.Languages {
		state := "-"
		if _, ok := p.sess.Reports[l]; ok {
			state = "generated"
		}
		rows = append(rows, []string{l, state})
	}
	p.display.ShowTable([]string{"Language", "Report"}, rows)
	p.display.ShowInfo("Source language: %s\n", p.wizard.SourceLanguage)
	return nil
}
