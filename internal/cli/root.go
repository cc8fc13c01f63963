package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the estate command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "estate",
		Short: "Manage your estate session from the terminal",
		Long: `estate logs in to the estate backend and keeps the session shared with every
other estate client using the same store.

Environment Variables:
  ESTATE_BACKEND_URL   Backend API URL (default: http://localhost:8080)
  ESTATE_STORE_KIND    Session store: file, redis or memory (default: file)
  ESTATE_STORE_DIR     Directory of the file store (default: $XDG_CONFIG_HOME/estate)`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.configure(cmd.ErrOrStderr())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&app.flags.envFile, "env-file", "", "Load configuration from this .env file")
	flags.StringVar(&app.flags.backendURL, "backend-url", "", "Backend API URL (overrides ESTATE_BACKEND_URL)")
	flags.StringVar(&app.flags.storeKind, "store", "", "Session store: file, redis or memory (overrides ESTATE_STORE_KIND)")
	flags.StringVar(&app.flags.storeDir, "store-dir", "", "Directory of the file store (overrides ESTATE_STORE_DIR)")
	flags.StringVar(&app.flags.logLevel, "log-level", "", "Log level (overrides ESTATE_LOG_LEVEL)")
	flags.BoolVar(&app.flags.jsonOutput, "json", false, "Output JSON instead of human-readable text")

	rootCmd.AddCommand(
		newLoginCommand(app),
		newLogoutCommand(app),
		newStatusCommand(app),
		newLevelCommand(app),
		newWhoamiCommand(app),
		newWatchCommand(app),
	)
	return rootCmd
}

// Execute runs the estate command line until it finishes or is interrupted.
func Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return NewRootCommand(NewApp()).ExecuteContext(ctx)
}
