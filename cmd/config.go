package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jywlabs/scriptwiz/internal/config"
	"github.com/jywlabs/scriptwiz/internal/pipeline"
	"github.com/jywlabs/scriptwiz/internal/template"
)

// Config set flags
var (
	providerFlag string
	apiKeyFlag   string
	baseURLFlag  string
	modelFlag    string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change the configuration",
	Long: `Show the project configuration from .scriptwiz/config.yaml.

Subcommands choose the API provider for the current session.`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Choose provider, API key, base URL and model",
	Long: `Store the API connection for the current session.

The base URL defaults to the provider's URL from prompts.yaml. When --api-key
is not given, SCRIPTWIZ_API_KEY from the environment or .env is used.

Examples:
  scriptwiz config set --provider OpenAI --model gpt-4o --api-key sk-...
  scriptwiz config set --provider Custom --base-url http://localhost:11434/v1 --model llama3`,
	Args: cobra.NoArgs,
	RunE: withProject(runConfigSet),
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the session's API configuration",
	Args:  cobra.NoArgs,
	RunE:  withProject(runConfigShow),
}

var configProvidersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List providers and models from prompts.yaml",
	Args:  cobra.NoArgs,
	RunE:  withProject(runConfigProviders),
}

func init() {
	configSetCmd.Flags().StringVar(&providerFlag, "provider", "", "Provider name from prompts.yaml")
	configSetCmd.Flags().StringVar(&apiKeyFlag, "api-key", "", "API key (default: $"+config.APIKeyEnv+")")
	configSetCmd.Flags().StringVar(&baseURLFlag, "base-url", "", "Base URL (default: the provider's URL)")
	configSetCmd.Flags().StringVar(&modelFlag, "model", "", "Model name")

	configCmd.AddCommand(configSetCmd, configShowCmd, configProvidersCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	configPath := filepath.Join(dirFlag, template.ConfigFile)

	content, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		fmt.Fprintf(out, "No %s found (using defaults)\n\n", configPath)
		fmt.Fprintln(out, "Run 'scriptwiz init' to create a configuration file.")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Default settings:")
		fmt.Fprint(out, template.DefaultConfig)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	fmt.Fprintf(out, "Current configuration (%s):\n\n", configPath)
	fmt.Fprintln(out, string(content))
	return nil
}

func runConfigSet(cmd *cobra.Command, p *project, args []string) error {
	key := apiKeyFlag
	if key == "" {
		key = config.APIKeyFromEnv()
	}

	res, err := p.wizard.Configure(p.sess, pipeline.APIInput{
		Provider: providerFlag,
		APIKey:   key,
		BaseURL:  baseURLFlag,
		Model:    modelFlag,
	})
	if err != nil {
		return err
	}
	p.report(res)

	api := p.sess.API.Redacted()
	p.display.ShowSuccess("API configured: %s %s (%s)", api.Provider, api.Model, api.BaseURL)
	p.showNext(res.Next)
	return nil
}

func runConfigShow(cmd *cobra.Command, p *project, args []string) error {
	api := p.sess.API.Redacted()
	if !api.Configured {
		p.display.ShowWarning("Session %q has no API configuration. Run 'scriptwiz config set'.", p.sess.ID)
		return nil
	}
	p.display.ShowTable([]string{"Setting", "Value"}, [][]string{
		{"Session", p.sess.ID},
		{"Provider", api.Provider},
		{"Model", api.Model},
		{"Base URL", api.BaseURL},
		{"API key", api.APIKey},
		{"Storage", p.cfg.Storage.Backend},
		{"Prompts", p.cfg.PromptsPath(p.dir)},
	})
	return nil
}

func runConfigProviders(cmd *cobra.Command, p *project, args []string) error {
	providers := p.wizard.Catalog.Providers
	if len(providers) == 0 {
		p.display.ShowWarning("No providers listed in prompts.yaml; any provider name is accepted.")
		return nil
	}
	rows := make([][]string, 0, len(providers))
	for _, pr := range providers {
		models := strings.Join(pr.Models, ", ")
		if !pr.HasModels() {
			models = "(any)"
		}
		baseURL := pr.BaseURLTemplate
		if baseURL == "" {
			baseURL = "(set with --base-url)"
		}
		rows = append(rows, []string{pr.Name, baseURL, models})
	}
	p.display.ShowTable([]string{"Provider", "Base URL", "Models"}, rows)
	return nil
}
