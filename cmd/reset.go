package cmd

import (
	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Start a new project, keeping the API configuration",
	Args:  cobra.NoArgs,
	RunE:  withProject(runReset),
}

func init() {
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, p *project, args []string) error {
	res := p.wizard.Reset(p.sess)
	p.display.ShowSuccess("Project reset (session %s)", p.sess.ID)
	p.showNext(res.Next)
	return nil
}
