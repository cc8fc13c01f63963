package backend_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-estate-session/backend"
)

func TestLogin_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/login", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req backend.LoginRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "alice", req.Login)
		assert.Equal(t, "secret", req.Password)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jwt":"a.b.c","refreshToken":"r1"}`))
	}))
	defer server.Close()

	pair, err := backend.New(server.URL).Login(context.Background(), &backend.Credentials{Login: "alice", Password: []byte("secret")})
	require.NoError(t, err)
	require.Equal(t, backend.TokenPair{AccessToken: "a.b.c", RefreshToken: "r1"}, pair)
}

func TestLogin_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(backend.ErrorResponse{Error: "invalid credentials"})
	}))
	defer server.Close()

	_, err := backend.New(server.URL).Login(context.Background(), &backend.Credentials{Login: "alice", Password: []byte("wrong")})
	require.ErrorIs(t, err, backend.ErrRejected)
	require.Contains(t, err.Error(), "invalid credentials")
}

func TestRefresh_SendsLoginAndToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/refresh", r.URL.Path)
		var req backend.RefreshRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, backend.RefreshRequest{Login: "alice", RefreshToken: "r1"}, req)
		_ = json.NewEncoder(w).Encode(backend.TokenPair{AccessToken: "x.y.z", RefreshToken: "r2"})
	}))
	defer server.Close()

	pair, err := backend.New(server.URL + "/").Refresh(context.Background(), "alice", "r1")
	require.NoError(t, err)
	require.Equal(t, "r2", pair.RefreshToken)
}

func TestRefresh_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := backend.New(server.URL).Refresh(context.Background(), "alice", "r1")
	require.Error(t, err)
	require.NotErrorIs(t, err, backend.ErrRejected)
}

func TestLogin_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	_, err := backend.New(server.URL).Login(context.Background(), &backend.Credentials{Login: "alice"})
	require.ErrorContains(t, err, "invalid response")
}

func TestLogin_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := backend.New(server.URL).Login(ctx, &backend.Credentials{Login: "alice"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestLogin_ConnectionError(t *testing.T) {
	_, err := backend.New("http://127.0.0.1:1", backend.WithTimeout(time.Second)).Login(context.Background(), &backend.Credentials{Login: "alice"})
	require.ErrorContains(t, err, "cannot connect")
}

func TestCredentials_Scrub(t *testing.T) {
	password := []byte("secret")
	creds := &backend.Credentials{Login: "alice", Password: password}
	creds.Scrub()

	require.Nil(t, creds.Password)
	require.Equal(t, make([]byte, 6), password)
}

func TestMe_UsesProvidedClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(backend.Profile{Login: "alice", AccessLevels: []string{"OWNER"}})
	}))
	defer server.Close()

	httpClient := &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		r.Header.Set("Authorization", "Bearer tok")
		return http.DefaultTransport.RoundTrip(r)
	})}

	profile, err := backend.New(server.URL, backend.WithHTTPClient(httpClient)).Me(context.Background())
	require.NoError(t, err)
	require.Equal(t, "alice", profile.Login)
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func TestWithTimeout_LeavesProvidedClientUnchanged(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer server.Close()

	httpClient := &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		r.Header.Set("Authorization", "Bearer tok")
		return http.DefaultTransport.RoundTrip(r)
	})}

	client := backend.New(server.URL, backend.WithHTTPClient(httpClient), backend.WithTimeout(50*time.Millisecond))
	_, err := client.Me(context.Background())
	require.Error(t, err)
	require.Zero(t, httpClient.Timeout)
}
