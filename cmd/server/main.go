// Package main implements the entry point for the usergate API server,
// a user management service whose requests pass through an audited,
// authenticated middleware pipeline.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/usergate/internal/platform/postgres"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	serve := func(cmd *cobra.Command, _ []string) error {
		return runServer(cmd.Context(), configPath)
	}

	rootCmd := &cobra.Command{
		Use:           "usergate",
		Short:         "user management API",
		Long:          "Runs the usergate HTTP API. Without a subcommand the server is started.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"path to a YAML config file (default: ./config.yaml if present)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "start the HTTP server",
		Args:  cobra.NoArgs,
		RunE:  serve,
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate [up|down|status|version]",
		Short: "apply or inspect database migrations",
		Long: `Runs the embedded SQL migrations against database.url.

Examples:
  usergate migrate up
  usergate migrate status
  USERGATE_DATABASE_URL=postgres://... usergate migrate down`,
		ValidArgs: []string{postgres.MigrateUp, postgres.MigrateDown, postgres.MigrateStatus, postgres.MigrateVersion},
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(cmd.Context(), configPath, args[0])
		},
	}

	rootCmd.AddCommand(serveCmd, migrateCmd)
	return rootCmd
}
