package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jywlabs/scriptwiz/internal/config"
	"github.com/jywlabs/scriptwiz/internal/llm"
	"github.com/jywlabs/scriptwiz/internal/server"
	"github.com/jywlabs/scriptwiz/internal/storage"
)

var addrFlag string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the wizard over HTTP",
	Long: `Serve the wizard as a JSON API. Each client creates its own session with
POST /sessions and drives the stages under /sessions/{id}/.

Requests to the model are rate limited across all sessions (server.rateLimit
in config.yaml) and counted on /metrics.

Examples:
  scriptwiz serve
  scriptwiz serve --addr 127.0.0.1:9000
  scriptwiz serve --dry-run`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&addrFlag, "addr", "", "Listen address (default: server.addr from config.yaml)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	dir := dirFlag
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("%s not found. Run 'scriptwiz init' first", dir)
	}
	if err := config.LoadEnv(dir); err != nil {
		return err
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}
	if addrFlag != "" {
		cfg.Server.Addr = addrFlag
	}
	closer, err := config.SetupLogging(cfg.Log, verboseFlag)
	if err != nil {
		return err
	}
	defer closer.Close()

	engine := "openai"
	if dryRunFlag {
		engine = "dryrun"
	}
	inv, err := llm.New(engine, llm.Config{Timeout: cfg.LLMTimeout})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, storage.Options{Backend: cfg.Storage.Backend, DSN: cfg.Storage.DSN, Dir: dir})
	if err != nil {
		return err
	}
	defer store.Close()

	srv := server.New(server.Options{
		Config:      cfg,
		PromptsPath: cfg.PromptsPath(dir),
		Loader:      catalogs,
		Store:       store,
		Invoker:     inv,
	})
	fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on %s (Ctrl+C to stop)\n", dir, cfg.Server.Addr)
	return srv.Run(ctx)
}
