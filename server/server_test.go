package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-estate-session/accesslevel"
	"github.com/jrsteele09/go-estate-session/backend"
	"github.com/jrsteele09/go-estate-session/internal/config"
	"github.com/jrsteele09/go-estate-session/server"
	"github.com/jrsteele09/go-estate-session/token"
	refreshrepofake "github.com/jrsteele09/go-estate-session/token/refresh/repofake"
	"github.com/jrsteele09/go-estate-session/users"
	fakeuserrepo "github.com/jrsteele09/go-estate-session/users/repofake"
)

type testServer struct {
	*httptest.Server
	users *fakeuserrepo.FakeUserRepo
	codec *token.Codec
}

func newTestServer(t *testing.T, env string) *testServer {
	t.Helper()
	cfg := config.New(config.Values{
		Env:     env,
		AppName: "Estate",
		Server: config.ServerValues{
			JWTSecret:      "test-secret",
			AllowedOrigins: []string{"https://app.example.com"},
		},
	})
	userRepo := fakeuserrepo.NewFakeUserRepo()
	s, err := server.New(cfg, server.Repos{
		Users:         userRepo,
		RefreshTokens: refreshrepofake.NewFakeRefreshTokenRepo(),
	}, server.WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)
	return &testServer{Server: ts, users: userRepo, codec: token.NewCodec()}
}

func (ts *testServer) addUser(t *testing.T, login string, levels ...accesslevel.Level) *users.User {
	t.Helper()
	u, err := users.New(login, login+"@example.com", "Password1", levels...)
	require.NoError(t, err)
	require.NoError(t, ts.users.Upsert(context.Background(), u))
	return u
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestNew_RequiresRepos(t *testing.T) {
	cfg := config.New(config.Values{Env: "DEV"})
	_, err := server.New(cfg, server.Repos{})
	assert.Error(t, err)
}

func TestNew_RequiresSecretOutsideDev(t *testing.T) {
	cfg := config.New(config.Values{Env: "PROD"})
	_, err := server.New(cfg, server.Repos{
		Users:         fakeuserrepo.NewFakeUserRepo(),
		RefreshTokens: refreshrepofake.NewFakeRefreshTokenRepo(),
	})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, "PROD")

	resp, err := http.Get(ts.URL + server.RouteHealth)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t, "PROD")
	ts.addUser(t, "alice", accesslevel.Owner, accesslevel.Manager)

	resp := postJSON(t, ts.URL+server.RouteLogin, backend.LoginRequest{Login: "alice", Password: "Password1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	var pair backend.TokenPair
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pair))
	assert.Len(t, pair.RefreshToken, 64)

	claims, err := ts.codec.Decode(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, accesslevel.Set{accesslevel.Owner, accesslevel.Manager}, claims.AccessLevels)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), claims.Expiry, 5*time.Second)

	u, err := ts.users.GetByLogin(context.Background(), "alice")
	require.NoError(t, err)
	assert.False(t, u.LastLogin.IsZero())
}

func TestLogin_Refused(t *testing.T) {
	ts := newTestServer(t, "PROD")
	ts.addUser(t, "alice", accesslevel.Owner)
	blocked := ts.addUser(t, "bob", accesslevel.Owner)
	require.NoError(t, ts.users.SetBlocked(context.Background(), blocked.Login, true))

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"wrong password", backend.LoginRequest{Login: "alice", Password: "wrong"}, http.StatusUnauthorized},
		{"unknown login", backend.LoginRequest{Login: "carol", Password: "Password1"}, http.StatusUnauthorized},
		{"blocked", backend.LoginRequest{Login: "bob", Password: "Password1"}, http.StatusForbidden},
		{"missing password", backend.LoginRequest{Login: "alice"}, http.StatusBadRequest},
		{"not json", "nope", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, ts.URL+server.RouteLogin, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)

			var body backend.ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestRefresh_RotatesToken(t *testing.T) {
	ts := newTestServer(t, "PROD")
	ts.addUser(t, "alice", accesslevel.Admin)
	client := backend.New(ts.URL)
	ctx := context.Background()

	first, err := client.Login(ctx, &backend.Credentials{Login: "alice", Password: []byte("Password1")})
	require.NoError(t, err)

	second, err := client.Refresh(ctx, "alice", first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	claims, err := ts.codec.Decode(second.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, accesslevel.Set{accesslevel.Admin}, claims.AccessLevels)

	// the rotated token is single use
	_, err = client.Refresh(ctx, "alice", first.RefreshToken)
	assert.ErrorIs(t, err, backend.ErrRejected)

	// and bound to its login
	_, err = client.Refresh(ctx, "bob", second.RefreshToken)
	assert.ErrorIs(t, err, backend.ErrRejected)
}

func TestRefresh_BlockedUserRejected(t *testing.T) {
	ts := newTestServer(t, "PROD")
	ts.addUser(t, "alice", accesslevel.Owner)
	client := backend.New(ts.URL)
	ctx := context.Background()

	pair, err := client.Login(ctx, &backend.Credentials{Login: "alice", Password: []byte("Password1")})
	require.NoError(t, err)
	require.NoError(t, ts.users.SetBlocked(ctx, "alice", true))

	_, err = client.Refresh(ctx, "alice", pair.RefreshToken)
	assert.ErrorIs(t, err, backend.ErrRejected)
}

func TestMe(t *testing.T) {
	ts := newTestServer(t, "PROD")
	ts.addUser(t, "alice", accesslevel.Manager, accesslevel.Owner)
	ctx := context.Background()

	pair, err := backend.New(ts.URL).Login(ctx, &backend.Credentials{Login: "alice", Password: []byte("Password1")})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, ts.URL+server.RouteMe, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var profile backend.Profile
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&profile))
	assert.Equal(t, "alice", profile.Login)
	assert.Equal(t, "alice@example.com", profile.Email)
	assert.Equal(t, []string{"MANAGER", "OWNER"}, profile.AccessLevels)
}

func TestMe_RejectsBadTokens(t *testing.T) {
	ts := newTestServer(t, "PROD")

	forged, err := token.NewIssuer(token.NewHMACSigner("other-secret")).Issue("alice", accesslevel.Set{accesslevel.Admin})
	require.NoError(t, err)
	expired, err := token.NewIssuer(token.NewHMACSigner("test-secret"),
		token.WithNowFunc(func() time.Time { return time.Now().Add(-time.Hour) })).Issue("alice", accesslevel.Set{accesslevel.Admin})
	require.NoError(t, err)

	for name, header := range map[string]string{
		"missing": "",
		"scheme":  "Basic abc",
		"forged":  "Bearer " + forged,
		"expired": "Bearer " + expired,
	} {
		t.Run(name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, ts.URL+server.RouteMe, nil)
			require.NoError(t, err)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestCors(t *testing.T) {
	ts := newTestServer(t, "PROD")

	req, err := http.NewRequest(http.MethodOptions, ts.URL+server.RouteLogin, nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://app.example.com")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "https://app.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "POST")

	req, err = http.NewRequest(http.MethodOptions, ts.URL+server.RouteLogin, nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://evil.example.com")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Empty(t, resp2.Header.Get("Access-Control-Allow-Origin"))
}

func TestSeedDemoUsers(t *testing.T) {
	ts := newTestServer(t, "DEV")
	ctx := context.Background()

	multi, err := ts.users.GetByLogin(ctx, "multi")
	require.NoError(t, err)
	assert.Equal(t, accesslevel.Set{accesslevel.Owner, accesslevel.Manager, accesslevel.Admin}, multi.AccessLevels)

	_, err = backend.New(ts.URL).Login(ctx, &backend.Credentials{Login: "owner", Password: []byte(server.DemoPassword)})
	assert.NoError(t, err)
}
