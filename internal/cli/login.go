package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jrsteele09/go-estate-session/backend"
)

func newLoginCommand(app *App) *cobra.Command {
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "login [LOGIN]",
		Short: "Log in and choose an access level",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var login string
			if len(args) == 1 {
				login = strings.TrimSpace(args[0])
			}
			if login == "" {
				var err error
				if login, err = app.prompter.Login(ctx); err != nil {
					return errors.Wrap(err, "read login")
				}
			}

			password, err := app.readPassword(cmd, login, passwordStdin)
			if err != nil {
				return err
			}

			s, err := app.openSession(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			level, err := s.boundary.Login(ctx, &backend.Credentials{Login: login, Password: password})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", login, level)
			return nil
		},
	}
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from standard input")
	return cmd
}

func (a *App) readPassword(cmd *cobra.Command, login string, fromStdin bool) ([]byte, error) {
	if !fromStdin {
		password, err := a.prompter.Password(cmd.Context(), login)
		if err != nil {
			return nil, errors.Wrap(err, "read password")
		}
		return password, nil
	}

	line, err := bufio.NewReader(a.stdin).ReadBytes('\n')
	if err != nil && len(line) == 0 {
		return nil, errors.Wrap(err, "read password from stdin")
	}
	password := []byte(strings.TrimRight(string(line), "\r\n"))
	clear(line)
	if len(password) == 0 {
		return nil, errors.New("empty password on stdin")
	}
	return password, nil
}
