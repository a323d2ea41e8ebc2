package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jywlabs/scriptwiz/internal/pipeline"
)

var (
	wordsFlag      int
	scriptFileFlag string
)

var scriptCmd = &cobra.Command{
	Use:   "script",
	Short: "Generate, score and edit the narration script",
}

var scriptGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write the narration script from the outline",
	Long: `Write the narration script from the current outline.

--words sets the target length and is remembered for later runs (default 1000).

Examples:
  scriptwiz script generate
  scriptwiz script generate --words 1500`,
	Args: cobra.NoArgs,
	RunE: withProject(runScriptGenerate),
}

var scriptScoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Ask the model to review the script",
	Args:  cobra.NoArgs,
	RunE:  withProject(runScriptScore),
}

var scriptSetCmd = &cobra.Command{
	Use:   "set [text]",
	Short: "Replace the script with your own text",
	RunE:  withProject(runScriptSet),
}

var scriptShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the script and its score",
	Args:  cobra.NoArgs,
	RunE:  withProject(runScriptShow),
}

func init() {
	scriptGenerateCmd.Flags().IntVarP(&wordsFlag, "words", "w", 0, "Target word count (0 keeps the current target)")
	scriptSetCmd.Flags().StringVarP(&scriptFileFlag, "file", "f", "", "Read the script from a file ('-' for stdin)")

	scriptCmd.AddCommand(scriptGenerateCmd, scriptScoreCmd, scriptSetCmd, scriptShowCmd, confirmCmd(pipeline.StageScript))
	rootCmd.AddCommand(scriptCmd)
}

func runScriptGenerate(cmd *cobra.Command, p *project, args []string) error {
	target := wordsFlag
	if target == 0 {
		target = p.sess.TargetWords()
	}
	p.display.ShowCommandHeader("Narration script", fmt.Sprintf("about %d words", target))

	res, err := p.run("writing script...", func() (*pipeline.Result, error) {
		return p.wizard.GenerateScript(cmd.Context(), p.sess, wordsFlag)
	})
	if err != nil {
		return err
	}
	p.display.ShowArtifact("Script", p.sess.Script)
	p.showNext(res.Next)
	return nil
}

func runScriptScore(cmd *cobra.Command, p *project, args []string) error {
	p.display.ShowCommandHeader("Script score", "")
	if _, err := p.run("scoring script...", func() (*pipeline.Result, error) {
		return p.wizard.ScoreScript(cmd.Context(), p.sess)
	}); err != nil {
		return err
	}
	p.display.ShowArtifact("Script feedback", p.sess.ScriptFeedback)
	return nil
}

func runScriptSet(cmd *cobra.Command, p *project, args []string) error {
	text, err := readText(cmd, args, scriptFileFlag)
	if err != nil {
		return err
	}
	res := p.wizard.SetScript(p.sess, text)
	p.display.ShowSuccess("Script saved")
	p.showNext(res.Next)
	return nil
}

func runScriptShow(cmd *cobra.Command, p *project, args []string) error {
	if !pipeline.StageScript.Complete(p.sess) {
		p.display.ShowWarning("No script yet. Run '%s'.", pipeline.StageScript.Command())
		return nil
	}
	p.display.ShowArtifact(fmt.Sprintf("Script (target %d words)", p.sess.TargetWords()), p.sess.Script)
	if p.sess.ScriptFeedback != "" {
		p.display.ShowArtifact("Script feedback", p.sess.ScriptFeedback)
	}
	return nil
}
