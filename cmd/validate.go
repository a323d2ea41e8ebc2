package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jywlabs/scriptwiz/internal/catalog"
	"github.com/jywlabs/scriptwiz/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check config.yaml and the prompts file",
	Long: `Check that config.yaml parses and that the prompts file defines every task
the wizard uses.

Checks:
  - config.yaml values are valid (storage backend, log level, timeout)
  - every wizard task exists and has at least one usable entry
  - tasks without a "default" entry are reported, since unknown models
    then fall back to the first entry

Examples:
  scriptwiz validate
  scriptwiz validate --dir other/.scriptwiz`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// catalogIssues lists the problems found in a prompt catalog.
type catalogIssues struct {
	Errors   []string
	Warnings []string
}

func (i catalogIssues) Valid() bool {
	return len(i.Errors) == 0
}

func checkCatalog(c *catalog.Catalog) catalogIssues {
	var issues catalogIssues
	for _, name := range catalog.WizardTasks {
		task, ok := c.Task(name)
		if !ok {
			issues.Errors = append(issues.Errors, fmt.Sprintf("%s: task missing", name))
			continue
		}
		usable := 0
		for _, e := range task.Entries {
			if e.Usable() {
				usable++
			}
		}
		if usable == 0 {
			issues.Errors = append(issues.Errors, fmt.Sprintf("%s: no usable entry", name))
			continue
		}
		if e, ok := task.Lookup(catalog.DefaultKey); !ok || !e.Usable() {
			first, _ := task.First()
			issues.Warnings = append(issues.Warnings, fmt.Sprintf("%s: no %q entry, unknown models use %q", name, catalog.DefaultKey, first.Key))
		}
	}
	if len(c.Providers) == 0 {
		issues.Warnings = append(issues.Warnings, "no providers listed, 'config set' needs --base-url")
	}
	return issues
}

func runValidate(cmd *cobra.Command, args []string) error {
	return validateProject(dirFlag, cmd.OutOrStdout())
}

func validateProject(dir string, out io.Writer) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("%s not found. Run 'scriptwiz init' first", dir)
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}
	path := cfg.PromptsPath(dir)
	c, err := catalog.LoadFile(path)
	if err != nil {
		return err
	}

	issues := checkCatalog(c)
	fmt.Fprintf(out, "Prompts: %s (%d tasks, %d providers)\n", path, len(c.Tasks()), len(c.Providers))
	for _, w := range issues.Warnings {
		fmt.Fprintf(out, "  warning: %s\n", w)
	}
	for _, e := range issues.Errors {
		fmt.Fprintf(out, "  error:   %s\n", e)
	}
	if !issues.Valid() {
		return fmt.Errorf("prompts file has %d error(s): %s", len(issues.Errors), strings.Join(issues.Errors, "; "))
	}
	fmt.Fprintln(out, "All checks passed")
	return nil
}
