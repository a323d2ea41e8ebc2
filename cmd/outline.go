package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jywlabs/scriptwiz/internal/pipeline"
)

var outlineFileFlag string

var outlineCmd = &cobra.Command{
	Use:   "outline",
	Short: "Generate, score and edit the outline",
}

var outlineGenerateCmd = &cobra.Command{
	Use:   "generate [topic]",
	Short: "Generate the outline for a topic",
	Long: `Generate the video outline. Without a topic the previous topic is reused.

Regenerating replaces the outline and clears its score. The script and later
stages are kept.

Examples:
  scriptwiz outline generate "how espresso machines work"
  scriptwiz outline generate            # reuse the last topic`,
	RunE: withProject(runOutlineGenerate),
}

var outlineScoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Ask the model to review the outline",
	Args:  cobra.NoArgs,
	RunE:  withProject(runOutlineScore),
}

var outlineSetCmd = &cobra.Command{
	Use:   "set [text]",
	Short: "Replace the outline with your own text",
	Long: `Replace the outline with text from the arguments, a file (--file) or stdin.

Examples:
  scriptwiz outline set --file outline.md
  cat outline.md | scriptwiz outline set`,
	RunE: withProject(runOutlineSet),
}

var outlineShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the outline and its score",
	Args:  cobra.NoArgs,
	RunE:  withProject(runOutlineShow),
}

func init() {
	outlineSetCmd.Flags().StringVarP(&outlineFileFlag, "file", "f", "", "Read the outline from a file ('-' for stdin)")

	outlineCmd.AddCommand(outlineGenerateCmd, outlineScoreCmd, outlineSetCmd, outlineShowCmd, confirmCmd(pipeline.StageOutline))
	rootCmd.AddCommand(outlineCmd)
}

func runOutlineGenerate(cmd *cobra.Command, p *project, args []string) error {
	topic := joinArgs(args)
	p.display.ShowCommandHeader("Outline", topic)

	res, err := p.run("generating outline...", func() (*pipeline.Result, error) {
		return p.wizard.GenerateOutline(cmd.Context(), p.sess, topic)
	})
	if err != nil {
		return err
	}
	p.display.ShowArtifact("Outline: "+p.sess.Topic, p.sess.Outline)
	p.showNext(res.Next)
	return nil
}

func runOutlineScore(cmd *cobra.Command, p *project, args []string) error {
	p.display.ShowCommandHeader("Outline score", "")
	if _, err := p.run("scoring outline...", func() (*pipeline.Result, error) {
		return p.wizard.ScoreOutline(cmd.Context(), p.sess)
	}); err != nil {
		return err
	}
	p.display.ShowArtifact("Outline feedback", p.sess.OutlineFeedback)
	return nil
}

func runOutlineSet(cmd *cobra.Command, p *project, args []string) error {
	text, err := readText(cmd, args, outlineFileFlag)
	if err != nil {
		return err
	}
	res := p.wizard.SetOutline(p.sess, text)
	p.display.ShowSuccess("Outline saved")
	p.showNext(res.Next)
	return nil
}

func runOutlineShow(cmd *cobra.Command, p *project, args []string) error {
	if !pipeline.StageOutline.Complete(p.sess) {
		p.display.ShowWarning("No outline yet. Run '%s'.", pipeline.StageOutline.Command())
		return nil
	}
	p.display.ShowArtifact("Outline: "+p.sess.Topic, p.sess.Outline)
	if p.sess.OutlineFeedback != "" {
		p.display.ShowArtifact("Outline feedback", p.sess.OutlineFeedback)
	}
	return nil
}
