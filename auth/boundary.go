package auth

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/jrsteele09/go-estate-session/accesslevel"
	"github.com/jrsteele09/go-estate-session/backend"
)

// Boundary is the surface the rest of the client uses to ask about and act on
// the session. It holds no state of its own.
type Boundary struct {
	manager *Manager
}

func NewBoundary(manager *Manager) *Boundary {
	return &Boundary{manager: manager}
}

func (b *Boundary) Login(ctx context.Context, creds *backend.Credentials) (accesslevel.Level, error) {
	return b.manager.Login(ctx, creds)
}

func (b *Boundary) Logout() {
	b.manager.Logout()
}

func (b *Boundary) IsAuthenticated() bool {
	return b.manager.State().HasSession()
}

// HasAccessLevel reports whether the current token grants level, whichever level
// is currently selected.
func (b *Boundary) HasAccessLevel(level accesslevel.Level) bool {
	claims, ok := b.manager.Claims()
	return ok && claims.AccessLevels.Contains(level)
}

// CurrentAccessLevel is accesslevel.None when logged out.
func (b *Boundary) CurrentAccessLevel() accesslevel.Level {
	level := b.manager.Session().AccessLevel
	if level == "" {
		return accesslevel.None
	}
	return level
}

func (b *Boundary) ChangeAccessLevel(level accesslevel.Level) error {
	return b.manager.ChangeAccessLevel(level)
}

func (b *Boundary) CurrentLogin() string {
	return b.manager.Session().Login
}

// Groups returns the access levels granted by the current token.
func (b *Boundary) Groups() accesslevel.Set {
	claims, _ := b.manager.Claims()
	return claims.AccessLevels
}

// TokenSource yields the current access token. It never refreshes on its own;
// the manager keeps the token fresh.
func (b *Boundary) TokenSource() oauth2.TokenSource {
	return sessionTokenSource{manager: b.manager}
}

// HTTPClient returns a client that sends the current access token as a bearer
// token. The base transport is taken from ctx as oauth2.NewClient does.
func (b *Boundary) HTTPClient(ctx context.Context) *http.Client {
	base := oauth2.NewClient(ctx, nil)
	return &http.Client{
		Transport: &oauth2.Transport{
			Source: b.TokenSource(),
			Base:   base.Transport,
		},
		Timeout: base.Timeout,
	}
}

type sessionTokenSource struct {
	manager *Manager
}

func (s sessionTokenSource) Token() (*oauth2.Token, error) {
	session, claims, ok := s.manager.Current()
	if !ok || session.AccessToken == "" {
		return nil, ErrNotAuthenticated
	}
	return &oauth2.Token{
		AccessToken: session.AccessToken,
		TokenType:   "Bearer",
		Expiry:      claims.Expiry,
	}, nil
}
