package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jywlabs/scriptwiz/internal/pipeline"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which stages are complete and ready",
	Args:  cobra.NoArgs,
	RunE:  withProject(runStatus),
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, p *project, args []string) error {
	p.display.ShowCommandHeader("Status", "session "+p.sess.ID)

	var rows [][]string
	for _, st := range pipeline.Status(p.sess) {
		state := "-"
		switch {
		case st.Complete:
			state = "done"
		case st.Ready:
			state = "ready"
		}
		note := st.Command
		if !st.Ready {
			note = "needs " + st.BlockedBy.Title()
		}
		confirmed := ""
		if !st.Confirmed.IsZero() {
			confirmed = st.Confirmed.Local().Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{st.Title, state, confirmed, note})
	}
	p.display.ShowTable([]string{"Stage", "State", "Confirmed", "Next"}, rows)

	if p.sess.API.Provider != "" {
		p.display.ShowInfo("Provider: %s  Model: %s\n", p.sess.API.Provider, p.sess.API.Model)
	}
	return nil
}
