package server

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-estate-session/accesslevel"
	"github.com/jrsteele09/go-estate-session/users"
)

// DemoPassword is the password of every seeded DEV account.
const DemoPassword = "Estate123"

type demoAccount struct {
	login  string
	levels []accesslevel.Level
}

var demoAccounts = []demoAccount{
	{login: "owner", levels: []accesslevel.Level{accesslevel.Owner}},
	{login: "manager", levels: []accesslevel.Level{accesslevel.Manager}},
	{login: "admin", levels: []accesslevel.Level{accesslevel.Admin}},
	{login: "multi", levels: []accesslevel.Level{accesslevel.Owner, accesslevel.Manager, accesslevel.Admin}},
}

// SeedDemoUsers creates the DEV demo accounts that do not exist yet.
func (s *Server) SeedDemoUsers(ctx context.Context) error {
	for _, account := range demoAccounts {
		if _, err := s.repos.Users.GetByLogin(ctx, account.login); err == nil {
			continue
		}
		user, err := users.New(account.login, account.login+"@estate.local", DemoPassword, account.levels...)
		if err != nil {
			return fmt.Errorf("[Server SeedDemoUsers] %s: %w", account.login, err)
		}
		if err := s.repos.Users.Upsert(ctx, user); err != nil {
			return fmt.Errorf("[Server SeedDemoUsers] upsert %s: %w", account.login, err)
		}
		s.logger.Info().
			Str("login", user.Login).
			Strs("groups", user.AccessLevels.Strings()).
			Str("password", DemoPassword).
			Msg("seeded demo account")
	}
	return nil
}
