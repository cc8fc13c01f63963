package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jrsteele09/go-estate-session/auth"
	"github.com/jrsteele09/go-estate-session/backend"
)

func newWhoamiCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Ask the backend who the current token belongs to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := app.openSession(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			if !s.boundary.IsAuthenticated() {
				return auth.ErrNotAuthenticated
			}

			client := backend.New(app.cfg.GetBackendURL(), backend.WithHTTPClient(s.boundary.HTTPClient(ctx)))
			profile, err := client.Me(ctx)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), app.flags.jsonOutput, *profile, func(p backend.Profile) string {
				return fmt.Sprintf("Login:  %s\nEmail:  %s\nGroups: %s", p.Login, p.Email, strings.Join(p.AccessLevels, ", "))
			})
		},
	}
}
