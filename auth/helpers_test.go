package auth_test

import (
	"context"
	"sync"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-estate-session/accesslevel"
	"github.com/jrsteele09/go-estate-session/auth"
	"github.com/jrsteele09/go-estate-session/backend"
	"github.com/jrsteele09/go-estate-session/internal/clock/fakeclock"
	"github.com/jrsteele09/go-estate-session/notify"
	"github.com/jrsteele09/go-estate-session/sessions"
	"github.com/jrsteele09/go-estate-session/sessions/memkv"
	"github.com/jrsteele09/go-estate-session/token"
)

var startTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func mintToken(t *testing.T, login string, expiry time.Time, levels ...accesslevel.Level) string {
	t.Helper()
	groups := make([]string, len(levels))
	for i, l := range levels {
		groups[i] = string(l)
	}
	raw, err := token.NewHMACSigner("test-secret").Sign(jwtlib.MapClaims{
		"sub":    login,
		"groups": groups,
		"iat":    expiry.Add(-time.Hour).Unix(),
		"exp":    expiry.Unix(),
		"jti":    uuid.NewString(),
	})
	require.NoError(t, err)
	return raw
}

// fakeBackend is a hand-written Backend whose behaviour each test sets.
type fakeBackend struct {
	lock         sync.Mutex
	loginFn      func(ctx context.Context, creds *backend.Credentials) (backend.TokenPair, error)
	refreshFn    func(ctx context.Context, login, refreshToken string) (backend.TokenPair, error)
	loginCalls   int
	refreshCalls int
}

func (f *fakeBackend) Login(ctx context.Context, creds *backend.Credentials) (backend.TokenPair, error) {
	f.lock.Lock()
	f.loginCalls++
	fn := f.loginFn
	f.lock.Unlock()
	if fn == nil {
		return backend.TokenPair{}, backend.ErrRejected
	}
	return fn(ctx, creds)
}

func (f *fakeBackend) Refresh(ctx context.Context, login, refreshToken string) (backend.TokenPair, error) {
	f.lock.Lock()
	f.refreshCalls++
	fn := f.refreshFn
	f.lock.Unlock()
	if fn == nil {
		return backend.TokenPair{}, backend.ErrRejected
	}
	return fn(ctx, login, refreshToken)
}

func (f *fakeBackend) logins() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.loginCalls
}

func (f *fakeBackend) refreshes() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.refreshCalls
}

type eventLog struct {
	lock   sync.Mutex
	events []notify.Event
}

func (l *eventLog) Notify(e notify.Event) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) count(kind notify.Kind) int {
	l.lock.Lock()
	defer l.lock.Unlock()
	n := 0
	for _, e := range l.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func (l *eventLog) all() []notify.Event {
	l.lock.Lock()
	defer l.lock.Unlock()
	return append([]notify.Event(nil), l.events...)
}

// harness is one origin shared by any number of managers, each on its own tab.
type harness struct {
	clock   *fakeclock.FakeClock
	origin  *memkv.Origin
	backend *fakeBackend
}

func newHarness() *harness {
	return &harness{
		clock:   fakeclock.New(startTime),
		origin:  memkv.NewOrigin(),
		backend: &fakeBackend{},
	}
}

func (h *harness) manager(t *testing.T, events notify.Notifier, options ...auth.ManagerOption) (*auth.Manager, *sessions.Store) {
	t.Helper()
	store := sessions.NewStore(h.origin.Tab())
	if events == nil {
		events = notify.Discard{}
	}
	opts := append([]auth.ManagerOption{
		auth.WithClock(h.clock),
		auth.WithNotifier(events),
		auth.WithLogger(zerolog.Nop()),
	}, options...)
	m, err := auth.NewManager(store, h.backend, opts...)
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m, store
}

func (h *harness) pair(t *testing.T, login string, ttl time.Duration, levels ...accesslevel.Level) backend.TokenPair {
	t.Helper()
	return backend.TokenPair{
		AccessToken:  mintToken(t, login, h.clock.Now().Add(ttl), levels...),
		RefreshToken: "refresh-" + uuid.NewString(),
	}
}

// grantLogin makes every login succeed with a token valid for ttl.
func (h *harness) grantLogin(t *testing.T, ttl time.Duration, levels ...accesslevel.Level) {
	h.backend.lock.Lock()
	defer h.backend.lock.Unlock()
	h.backend.loginFn = func(_ context.Context, creds *backend.Credentials) (backend.TokenPair, error) {
		return h.pair(t, creds.Login, ttl, levels...), nil
	}
}

func (h *harness) grantRefresh(t *testing.T, ttl time.Duration, levels ...accesslevel.Level) {
	h.backend.lock.Lock()
	defer h.backend.lock.Unlock()
	h.backend.refreshFn = func(_ context.Context, login, _ string) (backend.TokenPair, error) {
		return h.pair(t, login, ttl, levels...), nil
	}
}

func (h *harness) denyRefresh() {
	h.backend.lock.Lock()
	defer h.backend.lock.Unlock()
	h.backend.refreshFn = func(context.Context, string, string) (backend.TokenPair, error) {
		return backend.TokenPair{}, backend.ErrRejected
	}
}

func credentials(login string) *backend.Credentials {
	return &backend.Credentials{Login: login, Password: []byte("password")}
}

func pickPrompt(level accesslevel.Level, calls *int) accesslevel.Prompt {
	return accesslevel.PromptFunc(func(context.Context, accesslevel.Set) (accesslevel.Choice, error) {
		*calls++
		return accesslevel.Chosen(level), nil
	})
}
