package cmd

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

var requestCmd = &cobra.Command{
	Use:   "request [task]",
	Short: "Show the last request sent for a task",
	Long: `Show the prompt, parameters and model of the last request sent for a task.
Without a task, lists the tasks that have a recorded request.

Examples:
  scriptwiz request
  scriptwiz request outline_generation`,
	Args: cobra.MaximumNArgs(1),
	RunE: withProject(runRequest),
}

func init() {
	rootCmd.AddCommand(requestCmd)
}

func runRequest(cmd *cobra.Command, p *project, args []string) error {
	if len(args) == 0 {
		tasks := make([]string, 0, len(p.sess.LastRequests))
		for task := range p.sess.LastRequests {
			tasks = append(tasks, task)
		}
		slices.Sort(tasks)

		rows := make([][]string, 0, len(tasks))
		for _, task := range tasks {
			rec := p.sess.LastRequests[task]
			rows = append(rows, []string{task, rec.Model, rec.At.Local().Format("2006-01-02 15:04:05")})
		}
		p.display.ShowTable([]string{"Task", "Model", "Sent"}, rows)
		return nil
	}

	rec, ok := p.sess.LastRequests[args[0]]
	if !ok {
		return fmt.Errorf("no request recorded for task %q", args[0])
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Model:       %s\n", rec.Model)
	fmt.Fprintf(&b, "Entry:       %s\n", rec.EntryKey)
	if rec.FallbackFrom != "" {
		fmt.Fprintf(&b, "Fallback:    no entry for %s\n", rec.FallbackFrom)
	}
	fmt.Fprintf(&b, "Temperature: %.2f\n", rec.Temperature)
	fmt.Fprintf(&b, "Max tokens:  %d\n", rec.MaxTokens)
	if rec.Image != "" {
		fmt.Fprintf(&b, "Image:       %s\n", rec.Image)
	}
	if len(rec.Params) > 0 {
		params, err := json.MarshalIndent(rec.Params, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(&b, "Params:\n%s\n", params)
	}

	p.display.ShowCommandHeader("Request", rec.Task)
	p.display.ShowInfo("%s", b.String())
	p.display.ShowArtifact("System", rec.System)
	p.display.ShowArtifact("Template", rec.Template)
	p.display.ShowArtifact("User", rec.User)
	return nil
}
