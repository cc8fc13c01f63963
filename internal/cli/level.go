package cli

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jrsteele09/go-estate-session/accesslevel"
)

func newLevelCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:       "level LEVEL",
		Short:     "Switch to another access level granted to the current login",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"OWNER", "MANAGER", "ADMIN"},
		RunE: func(cmd *cobra.Command, args []string) error {
			level, ok := accesslevel.Parse(args[0])
			if !ok {
				return errors.Errorf("unknown access level %q", args[0])
			}

			s, err := app.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.boundary.ChangeAccessLevel(level); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Access level is now %s\n", level)
			return nil
		},
	}
}
