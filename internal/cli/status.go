package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// Status is the output of `estate status`.
type Status struct {
	State       string    `json:"state"`
	Login       string    `json:"login,omitempty"`
	AccessLevel string    `json:"accessLevel,omitempty"`
	Groups      []string  `json:"groups,omitempty"`
	Expiry      time.Time `json:"expiry,omitempty"`
}

func newStatusCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			status := Status{State: s.manager.State().String()}
			if s.boundary.IsAuthenticated() {
				status.Login = s.boundary.CurrentLogin()
				status.AccessLevel = s.boundary.CurrentAccessLevel().String()
				status.Groups = s.boundary.Groups().Strings()
				if claims, ok := s.manager.Claims(); ok {
					status.Expiry = claims.Expiry
				}
			}
			return writeOutput(cmd.OutOrStdout(), app.flags.jsonOutput, status, formatStatusHuman)
		},
	}
}

func formatStatusHuman(s Status) string {
	if s.Login == "" {
		return fmt.Sprintf("State:   %s", s.State)
	}
	return fmt.Sprintf(`State:   %s
Login:   %s
Level:   %s
Groups:  %s
Expires: %s (in %s)`,
		s.State,
		s.Login,
		s.AccessLevel,
		strings.Join(s.Groups, ", "),
		s.Expiry.Local().Format(time.RFC1123),
		time.Until(s.Expiry).Truncate(time.Second))
}

func writeOutput[T any](w io.Writer, asJSON bool, v T, human func(T) string) error {
	if !asJSON {
		_, err := fmt.Fprintln(w, human(v))
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
