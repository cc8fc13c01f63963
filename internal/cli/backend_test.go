package cli_test

import (
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-estate-session/internal/config"
	"github.com/jrsteele09/go-estate-session/server"
	refreshrepofake "github.com/jrsteele09/go-estate-session/token/refresh/repofake"
	fakeuserrepo "github.com/jrsteele09/go-estate-session/users/repofake"
)

// startBackend runs the development backend with its demo accounts.
func startBackend(t *testing.T) string {
	t.Helper()
	s, err := server.New(config.New(config.Values{Env: "DEV", AppName: "Estate"}), server.Repos{
		Users:         fakeuserrepo.NewFakeUserRepo(),
		RefreshTokens: refreshrepofake.NewFakeRefreshTokenRepo(),
	}, server.WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)
	return ts.URL
}
