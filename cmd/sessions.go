package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jywlabs/scriptwiz/internal/config"
	"github.com/jywlabs/scriptwiz/internal/storage"
)

var (
	sessionsAllFlag     bool
	sessionsPreviewFlag bool
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List or remove saved sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved sessions",
	Args:  cobra.NoArgs,
	RunE:  withStore(runSessionsList),
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete [id...]",
	Short: "Remove saved sessions",
	Long: `Remove saved sessions from the store.

With --all, every session except the active one (--session) is removed.
Use --preview to see what would be removed without changing anything.`,
	RunE: withStore(runSessionsDelete),
}

func init() {
	sessionsDeleteCmd.Flags().BoolVar(&sessionsAllFlag, "all", false, "Remove every session except the active one")
	sessionsDeleteCmd.Flags().BoolVar(&sessionsPreviewFlag, "preview", false, "Show what would be removed")
	sessionsCmd.AddCommand(sessionsListCmd, sessionsDeleteCmd)
	rootCmd.AddCommand(sessionsCmd)
}

// withStore opens only the session store, for commands that never call the model.
func withStore(fn func(cmd *cobra.Command, st storage.Store, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		dir := dirFlag
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return fmt.Errorf("%s not found. Run 'scriptwiz init' first", dir)
		}
		cfg, err := config.Load(dir)
		if err != nil {
			return err
		}
		st, err := storage.Open(cmd.Context(), storage.Options{Backend: cfg.Storage.Backend, DSN: cfg.Storage.DSN, Dir: dir})
		if err != nil {
			return err
		}
		defer st.Close()
		return fn(cmd, st, args)
	}
}

func runSessionsList(cmd *cobra.Command, st storage.Store, args []string) error {
	ids, err := st.List(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(ids) == 0 {
		fmt.Fprintln(out, "No saved sessions.")
		return nil
	}
	for _, id := range ids {
		marker := " "
		if id == sessionFlag {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %s\n", marker, id)
	}
	return nil
}

func runSessionsDelete(cmd *cobra.Command, st storage.Store, args []string) error {
	ids := args
	if sessionsAllFlag {
		all, err := st.List(cmd.Context())
		if err != nil {
			return err
		}
		ids = nil
		for _, id := range all {
			if id != sessionFlag {
				ids = append(ids, id)
			}
		}
	} else if len(ids) == 0 {
		return fmt.Errorf("name the sessions to remove or use --all")
	}
	return deleteSessions(cmd.Context(), st, ids, sessionsPreviewFlag, cmd.OutOrStdout())
}

func deleteSessions(ctx context.Context, st storage.Store, ids []string, preview bool, out io.Writer) error {
	removed := 0
	for _, id := range ids {
		if err := storage.ValidateID(id); err != nil {
			return err
		}
		if preview {
			fmt.Fprintf(out, "Would remove: %s\n", id)
		} else {
			if err := st.Delete(ctx, id); err != nil {
				return fmt.Errorf("failed to remove %s: %w", id, err)
			}
			fmt.Fprintf(out, "Removed: %s\n", id)
		}
		removed++
	}

	switch {
	case removed == 0:
		fmt.Fprintln(out, "No sessions to remove.")
	case preview:
		fmt.Fprintf(out, "\nWould remove %d session(s). Run without --preview to remove.\n", removed)
	default:
		fmt.Fprintf(out, "\nRemoved %d session(s).\n", removed)
	}
	return nil
}
