package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLogoutCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session for every client sharing the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			login := s.boundary.CurrentLogin()
			s.boundary.Logout()
			if login == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged out %s\n", login)
			return nil
		},
	}
}
