package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jywlabs/scriptwiz/internal/display"
	"github.com/jywlabs/scriptwiz/internal/pipeline"
	"github.com/jywlabs/scriptwiz/internal/template"
)

var (
	storyboardFileFlag string
	storyboardOutFlag  string
	storyboardRawFlag  bool
)

var storyboardCmd = &cobra.Command{
	Use:   "storyboard",
	Short: "Generate, edit and export the storyboard",
}

var storyboardGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Split the script into a scene table",
	Long: `Ask the model for a storyboard table and parse it.

When the output cannot be read as a table the raw output is kept (see
'scriptwiz storyboard show --raw') and the previous storyboard stays in place.`,
	Args: cobra.NoArgs,
	RunE: withProject(runStoryboardGenerate),
}

var storyboardSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Replace the storyboard from a markdown table or exported JSON",
	Long: `Replace the storyboard with your own version.

The input is either a markdown table or a JSON array of row objects as written
by 'scriptwiz storyboard export'.

Examples:
  scriptwiz storyboard set --file storyboard.md
  scriptwiz storyboard set --file .scriptwiz/exports/storyboard_script.json`,
	Args: cobra.NoArgs,
	RunE: withProject(runStoryboardSet),
}

var storyboardShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the storyboard table",
	Args:  cobra.NoArgs,
	RunE:  withProject(runStoryboardShow),
}

var storyboardExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the storyboard as JSON",
	Args:  cobra.NoArgs,
	RunE:  withProject(runStoryboardExport),
}

func init() {
	storyboardSetCmd.Flags().StringVarP(&storyboardFileFlag, "file", "f", "-", "Read the storyboard from a file ('-' for stdin)")
	storyboardShowCmd.Flags().BoolVar(&storyboardRawFlag, "raw", false, "Show the raw model output")
	storyboardExportCmd.Flags().StringVarP(&storyboardOutFlag, "out", "o", "", "Output path (default: exports/"+template.StoryboardExportFile+")")

	storyboardCmd.AddCommand(storyboardGenerateCmd, storyboardSetCmd, storyboardShowCmd, storyboardExportCmd, confirmCmd(pipeline.StageStoryboard))
	rootCmd.AddCommand(storyboardCmd)
}

func runStoryboardGenerate(cmd *cobra.Command, p *project, args []string) error {
	p.display.ShowCommandHeader("Storyboard", "")
	res, err := p.run("building storyboard...", func() (*pipeline.Result, error) {
		return p.wizard.GenerateStoryboard(cmd.Context(), p.sess)
	})
	if err != nil {
		return err
	}
	if res.Next == nil {
		p.display.ShowArtifact("Raw model output", p.sess.StoryboardRaw)
		return nil
	}
	showStoryboard(p)
	p.showNext(res.Next)
	return nil
}

func runStoryboardSet(cmd *cobra.Command, p *project, args []string) error {
	text, err := readText(cmd, nil, storyboardFileFlag)
	if err != nil {
		return err
	}
	res, err := p.wizard.SetStoryboard(p.sess, text)
	if err != nil {
		return err
	}
	p.report(res)
	p.display.ShowSuccess("Storyboard saved (%d scenes)", len(p.sess.Storyboard.Rows))
	p.showNext(res.Next)
	return nil
}

func runStoryboardShow(cmd *cobra.Command, p *project, args []string) error {
	if storyboardRawFlag {
		p.display.ShowArtifact("Raw model output", p.sess.StoryboardRaw)
		return nil
	}
	if !pipeline.StageStoryboard.Complete(p.sess) {
		p.display.ShowWarning("No storyboard yet. Run '%s'.", pipeline.StageStoryboard.Command())
		return nil
	}
	showStoryboard(p)
	return nil
}

func runStoryboardExport(cmd *cobra.Command, p *project, args []string) error {
	data, err := p.wizard.ExportStoryboard(p.sess)
	if err != nil {
		return err
	}
	path, err := p.writeExport(storyboardOutFlag, template.StoryboardExportFile, data)
	if err != nil {
		return err
	}
	p.display.ShowSuccess("Storyboard exported to %s", path)
	return nil
}

func showStoryboard(p *project) {
	t := p.sess.Storyboard
	rows := make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		cells := make([]string, len(r.Cells))
		for j, c := range r.Cells {
			cells[j] = display.Truncate(c, 80)
		}
		rows[i] = cells
	}
	p.display.ShowTable(t.Columns, rows)
}
