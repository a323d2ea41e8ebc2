package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jywlabs/scriptwiz/internal/display"
	"github.com/jywlabs/scriptwiz/internal/llm"
	"github.com/jywlabs/scriptwiz/internal/media"
	"github.com/jywlabs/scriptwiz/internal/pipeline"
	"github.com/jywlabs/scriptwiz/internal/template"
)

var (
	sceneFlag     string
	allScenesFlag bool
	imageFlag     string
	i2vFileFlag   string
	i2vOutFlag    string
)

var i2vCmd = &cobra.Command{
	Use:   "i2v",
	Short: "Image-to-video prompts per storyboard scene",
}

var i2vGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate the image-to-video prompt for a scene",
	Long: `Generate an image-to-video prompt from a scene's description.

An optional reference image (png, jpeg or webp) is sent with the prompt; use a
vision-capable model for it.

Examples:
  scriptwiz i2v generate --scene 3
  scriptwiz i2v generate --scene 3 --image frames/scene3.png
  scriptwiz i2v generate --all`,
	Args: cobra.NoArgs,
	RunE: withProject(runI2VGenerate),
}

var i2vSetCmd = &cobra.Command{
	Use:   "set [text]",
	Short: "Replace the prompt of a scene",
	RunE:  withProject(runI2VSet),
}

var i2vShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show scenes and their prompts",
	Args:  cobra.NoArgs,
	RunE:  withProject(runI2VShow),
}

var i2vExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the scene prompts as JSON",
	Args:  cobra.NoArgs,
	RunE:  withProject(runI2VExport),
}

func init() {
	i2vGenerateCmd.Flags().StringVar(&sceneFlag, "scene", "", "Scene number from the storyboard")
	i2vGenerateCmd.Flags().BoolVar(&allScenesFlag, "all", false, "Generate prompts for every scene")
	i2vGenerateCmd.Flags().StringVar(&imageFlag, "image", "", "Reference image for the scene")
	i2vSetCmd.Flags().StringVar(&sceneFlag, "scene", "", "Scene number from the storyboard")
	i2vSetCmd.Flags().StringVarP(&i2vFileFlag, "file", "f", "", "Read the prompt from a file ('-' for stdin)")
	i2vExportCmd.Flags().StringVarP(&i2vOutFlag, "out", "o", "", "Output path (default: exports/"+template.ImagePromptExportFile+")")

	i2vCmd.AddCommand(i2vGenerateCmd, i2vSetCmd, i2vShowCmd, i2vExportCmd)
	rootCmd.AddCommand(i2vCmd)
}

func runI2VGenerate(cmd *cobra.Command, p *project, args []string) error {
	if allScenesFlag == (sceneFlag != "") {
		return fmt.Errorf("use either --scene or --all")
	}
	if allScenesFlag && imageFlag != "" {
		return fmt.Errorf("--image applies to a single --scene")
	}
	if err := pipeline.CheckPrerequisites(p.sess, pipeline.StageImagePrompts); err != nil {
		return err
	}

	var image *llm.Image
	if imageFlag != "" {
		img, err := media.ReadFile(imageFlag)
		if err != nil {
			return err
		}
		image = img
	}

	scenes := []string{sceneFlag}
	if allScenesFlag {
		scenes = scenes[:0]
		for _, s := range p.wizard.Scenes(p.sess) {
			scenes = append(scenes, s.ID)
		}
	}

	p.display.ShowCommandHeader("Image-to-video prompts", fmt.Sprintf("%d scene(s)", len(scenes)))
	for _, id := range scenes {
		if _, err := p.run("scene "+id+"...", func() (*pipeline.Result, error) {
			return p.wizard.GenerateImagePrompt(cmd.Context(), p.sess, id, image)
		}); err != nil {
			return err
		}
		p.display.ShowArtifact("Scene "+id, p.sess.ImagePrompts[id])
	}
	return nil
}

func runI2VSet(cmd *cobra.Command, p *project, args []string) error {
	if sceneFlag == "" {
		return fmt.Errorf("--scene is required")
	}
	text, err := readText(cmd, args, i2vFileFlag)
	if err != nil {
		return err
	}
	if _, err := p.wizard.SetImagePrompt(p.sess, sceneFlag, text); err != nil {
		return err
	}
	p.display.ShowSuccess("Prompt for scene %s saved", sceneFlag)
	return nil
}

func runI2VShow(cmd *cobra.Command, p *project, args []string) error {
	scenes := p.wizard.Scenes(p.sess)
	if len(scenes) == 0 {
		p.display.ShowWarning("No storyboard yet. Run '%s'.", pipeline.StageStoryboard.Command())
		return nil
	}
	rows := make([][]string, len(scenes))
	for i, s := range scenes {
		rows[i] = []string{s.ID, display.Truncate(s.Description, 50), display.Truncate(s.ImagePrompt, 80), s.Image}
	}
	p.display.ShowTable([]string{"Scene", "Description", "Prompt", "Image"}, rows)
	return nil
}

func runI2VExport(cmd *cobra.Command, p *project, args []string) error {
	data, err := p.wizard.ExportImagePrompts(p.sess)
	if err != nil {
		return err
	}
	path, err := p.writeExport(i2vOutFlag, template.ImagePromptExportFile, data)
	if err != nil {
		return err
	}
	p.display.ShowSuccess("Prompts exported to %s", path)
	return nil
}
