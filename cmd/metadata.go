package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jywlabs/scriptwiz/internal/pipeline"
)

var (
	audienceFlag     string
	metadataFileFlag string
)

var metadataCmd = &cobra.Command{
	Use:   "metadata",
	Short: "Generate and edit titles, description and tags",
}

var metadataGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate video metadata",
	Long: `Generate titles, a description, tags and hashtags for the video.

--audience describes the target audience or style and is remembered.

Examples:
  scriptwiz metadata generate
  scriptwiz metadata generate --audience "busy parents, friendly tone"`,
	Args: cobra.NoArgs,
	RunE: withProject(runMetadataGenerate),
}

var metadataSetCmd = &cobra.Command{
	Use:   "set [text]",
	Short: "Replace the metadata with your own text",
	RunE:  withProject(runMetadataSet),
}

var metadataShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the metadata",
	Args:  cobra.NoArgs,
	RunE:  withProject(runMetadataShow),
}

func init() {
	metadataGenerateCmd.Flags().StringVarP(&audienceFlag, "audience", "a", "", "Target audience or style")
	metadataSetCmd.Flags().StringVarP(&metadataFileFlag, "file", "f", "", "Read the metadata from a file ('-' for stdin)")

	metadataCmd.AddCommand(metadataGenerateCmd, metadataSetCmd, metadataShowCmd, confirmCmd(pipeline.StageMetadata))
	rootCmd.AddCommand(metadataCmd)
}

func runMetadataGenerate(cmd *cobra.Command, p *project, args []string) error {
	p.display.ShowCommandHeader("Video metadata", audienceFlag)
	res, err := p.run("writing metadata...", func() (*pipeline.Result, error) {
		return p.wizard.GenerateMetadata(cmd.Context(), p.sess, audienceFlag)
	})
	if err != nil {
		return err
	}
	p.display.ShowArtifact("Metadata", p.sess.Metadata)
	p.showNext(res.Next)
	return nil
}

func runMetadataSet(cmd *cobra.Command, p *project, args []string) error {
	text, err := readText(cmd, args, metadataFileFlag)
	if err != nil {
		return err
	}
	res := p.wizard.SetMetadata(p.sess, text)
	p.display.ShowSuccess("Metadata saved")
	p.showNext(res.Next)
	return nil
}

func runMetadataShow(cmd *cobra.Command, p *project, args []string) error {
	if !pipeline.StageMetadata.Complete(p.sess) {
		p.display.ShowWarning("No metadata yet. Run '%s'.", pipeline.StageMetadata.Command())
		return nil
	}
	p.display.ShowArtifact("Metadata", p.sess.Metadata)
	return nil
}
