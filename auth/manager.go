package auth

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/jrsteele09/go-estate-session/accesslevel"
	"github.com/jrsteele09/go-estate-session/backend"
	"github.com/jrsteele09/go-estate-session/internal/clock"
	"github.com/jrsteele09/go-estate-session/internal/metrics"
	"github.com/jrsteele09/go-estate-session/notify"
	"github.com/jrsteele09/go-estate-session/sessions"
	"github.com/jrsteele09/go-estate-session/token"
)

//go:generate mockgen -destination=../internal/mocks/backend_mock.go -package=mocks github.com/jrsteele09/go-estate-session/auth Backend

const defaultRefreshRatio = 0.9

// SessionStore persists the session shared by every client instance.
type SessionStore interface {
	Get() sessions.Session
	Set(sessions.Session)
	Clear()
	OnExternalChange(fn func()) (cancel func())
}

// Backend exchanges credentials and refresh tokens for token pairs.
type Backend interface {
	Login(ctx context.Context, creds *backend.Credentials) (backend.TokenPair, error)
	Refresh(ctx context.Context, login, refreshToken string) (backend.TokenPair, error)
}

// AccessLevelResolver picks the access level to use among those a token grants.
type AccessLevelResolver interface {
	Resolve(ctx context.Context, levels accesslevel.Set) (accesslevel.Level, error)
}

// Manager owns the session lifecycle of one client instance: login, scheduled
// refresh, expiry and reaction to changes made by other instances sharing the
// store. All transitions are serialized by a single lock; network calls and the
// access level prompt run without it.
type Manager struct {
	store    SessionStore
	backend  Backend
	codec    *token.Codec
	selector AccessLevelResolver
	notifier notify.Notifier
	clock    clock.Clock
	ratio    float64
	logger   zerolog.Logger
	metrics  *metrics.Metrics

	refreshGroup singleflight.Group

	lock        sync.Mutex
	state       State
	session     sessions.Session
	claims      token.Claims
	timer       clock.Timer
	timerGen    uint64 // incremented whenever the timer slot changes
	sessionGen  uint64 // incremented whenever the session is replaced or dropped
	outbox      []notify.Event
	unsubscribe func()
	started     bool
	closed      bool
}

type ManagerOption func(*Manager)

func WithCodec(codec *token.Codec) ManagerOption {
	return func(m *Manager) {
		m.codec = codec
	}
}

func WithSelector(selector AccessLevelResolver) ManagerOption {
	return func(m *Manager) {
		m.selector = selector
	}
}

func WithNotifier(notifier notify.Notifier) ManagerOption {
	return func(m *Manager) {
		m.notifier = notifier
	}
}

// WithClock sets the time source (primarily for testing)
func WithClock(c clock.Clock) ManagerOption {
	return func(m *Manager) {
		m.clock = c
	}
}

// WithRefreshRatio sets the fraction of the remaining token lifetime after which
// the refresh fires.
func WithRefreshRatio(ratio float64) ManagerOption {
	return func(m *Manager) {
		m.ratio = ratio
	}
}

func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

func WithMetrics(mt *metrics.Metrics) ManagerOption {
	return func(m *Manager) {
		m.metrics = mt
	}
}

// NewManager initializes a Manager with required dependencies. Nothing happens
// until Start is called.
func NewManager(store SessionStore, be Backend, options ...ManagerOption) (*Manager, error) {
	if store == nil {
		return nil, errors.New("[NewManager] session store is required")
	}
	if be == nil {
		return nil, errors.New("[NewManager] backend is required")
	}

	m := &Manager{
		store:    store,
		backend:  be,
		codec:    token.NewCodec(),
		notifier: notify.Discard{},
		clock:    clock.Real{},
		ratio:    defaultRefreshRatio,
		logger:   log.Logger,
	}
	for _, opt := range options {
		opt(m)
	}

	if m.ratio <= 0 || m.ratio > 1 {
		return nil, errors.Errorf("[NewManager] refresh ratio %v outside (0, 1]", m.ratio)
	}
	if m.codec == nil {
		m.codec = token.NewCodec()
	}
	if m.selector == nil {
		m.selector = accesslevel.NewSelector(nil, accesslevel.WithSelectorLogger(m.logger))
	}
	if m.notifier == nil {
		m.notifier = notify.Discard{}
	}
	if m.clock == nil {
		m.clock = clock.Real{}
	}
	m.metrics.SetState(StateLoggedOut.String(), stateNames)
	return m, nil
}

// RefreshDelay is how long after now the refresh of a token expiring at expiry
// fires: the given fraction of the remaining lifetime, never negative.
func RefreshDelay(expiry, now time.Time, ratio float64) time.Duration {
	remaining := expiry.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return time.Duration(float64(remaining) * ratio)
}

// Start subscribes to changes made by other instances and restores the persisted
// session. A session that cannot be used any more is cleared and reported as
// expired; an empty store is not reported.
func (m *Manager) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.lock.Lock()
	defer m.unlock()

	if m.closed {
		return ErrManagerClosed
	}
	if m.started {
		return nil
	}
	m.started = true
	m.unsubscribe = m.store.OnExternalChange(m.onExternalChange)

	stored := m.store.Get()
	if stored.IsZero() {
		m.setStateLocked(StateLoggedOut)
		return nil
	}

	claims, err := m.validate(stored)
	if err != nil {
		m.logger.Info().Err(err).Str("login", stored.Login).Msg("Session: persisted session is not usable, clearing")
		m.store.Clear()
		m.dropSessionLocked(StateLoggedOut)
		m.metrics.Expired("startup")
		m.notifyLocked(notify.KindSessionExpired, stored.Login, err)
		return nil
	}

	m.adoptLocked(stored, claims)
	m.logger.Info().Str("login", stored.Login).Str("accessLevel", stored.AccessLevel.String()).Msg("Session: restored")
	return nil
}

// Login authenticates with the backend, resolves the access level, persists the
// session and schedules its refresh. On failure the password is scrubbed, the
// stored session is cleared and a login failure is notified.
func (m *Manager) Login(ctx context.Context, creds *backend.Credentials) (accesslevel.Level, error) {
	if creds == nil {
		return accesslevel.None, errors.New("[Manager.Login] credentials are required")
	}

	m.lock.Lock()
	switch {
	case m.closed:
		m.unlock()
		return accesslevel.None, ErrManagerClosed
	case m.state == StateAuthenticating:
		m.unlock()
		return accesslevel.None, ErrLoginInProgress
	case m.state == StateRefreshPending:
		m.unlock()
		return accesslevel.None, ErrRefreshInProgress
	}
	m.stopTimerLocked()
	m.sessionGen++
	gen := m.sessionGen
	m.setStateLocked(StateAuthenticating)
	m.unlock()

	pair, err := m.backend.Login(ctx, creds)
	if err != nil {
		if errors.Is(err, backend.ErrRejected) {
			err = errors.Wrapf(ErrCredentialRejected, "[Manager.Login] %v", err)
		} else {
			err = errors.Wrap(err, "[Manager.Login] login request failed")
		}
		return accesslevel.None, m.failLogin(gen, creds, err)
	}

	claims, err := m.codec.Decode(pair.AccessToken)
	if err != nil {
		return accesslevel.None, m.failLogin(gen, creds, errors.Wrap(err, "[Manager.Login] access token"))
	}

	level, err := m.selector.Resolve(ctx, claims.AccessLevels)
	if err != nil {
		return accesslevel.None, m.failLogin(gen, creds, err)
	}

	m.lock.Lock()
	defer m.unlock()
	if gen != m.sessionGen {
		creds.Scrub()
		m.metrics.Login(metrics.ResultAborted)
		return accesslevel.None, ErrLoginAborted
	}

	login := claims.Subject
	session := sessions.Session{
		Login:        login,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		AccessLevel:  level,
	}
	m.store.Set(session)
	m.adoptLocked(session, claims)
	m.metrics.Login(metrics.ResultSuccess)
	m.logger.Info().Str("login", login).Str("accessLevel", level.String()).Time("expiry", claims.Expiry).Msg("Session: logged in")
	return level, nil
}

func (m *Manager) failLogin(gen uint64, creds *backend.Credentials, cause error) error {
	creds.Scrub()

	m.lock.Lock()
	defer m.unlock()

	if gen != m.sessionGen {
		m.metrics.Login(metrics.ResultAborted)
		return ErrLoginAborted
	}

	m.store.Clear()
	m.dropSessionLocked(StateLoggedOut)
	if errors.Is(cause, ErrCredentialRejected) {
		m.metrics.Login(metrics.ResultRejected)
	} else {
		m.metrics.Login(metrics.ResultError)
	}
	m.logger.Err(cause).Str("login", creds.Login).Msg("Session: login failed")
	m.notifyLocked(notify.KindLoginFailed, creds.Login, cause)
	return cause
}

// Logout drops the session locally and in the store. It makes no network call.
// A login waiting on the access level prompt is aborted.
func (m *Manager) Logout() {
	m.lock.Lock()
	defer m.unlock()

	login := m.session.Login
	m.store.Clear()
	m.dropSessionLocked(StateLoggedOut)
	m.logger.Info().Str("login", login).Msg("Session: logged out")
}

// ChangeAccessLevel switches the current access level among those granted by the
// current token.
func (m *Manager) ChangeAccessLevel(level accesslevel.Level) error {
	m.lock.Lock()
	defer m.unlock()

	if m.state != StateAuthenticated {
		return ErrNotAuthenticated
	}
	if !m.claims.AccessLevels.Contains(level) {
		return errors.Wrapf(ErrAccessLevelNotGranted, "[Manager.ChangeAccessLevel] %s", level)
	}
	if m.session.AccessLevel == level {
		return nil
	}
	m.session.AccessLevel = level
	m.store.Set(m.session)
	m.logger.Info().Str("login", m.session.Login).Str("accessLevel", level.String()).Msg("Session: access level changed")
	return nil
}

// Close stops the refresh timer and the subscription to external changes. The
// persisted session is left in place for other instances.
func (m *Manager) Close() {
	m.lock.Lock()
	if m.closed {
		m.unlock()
		return
	}
	m.closed = true
	m.stopTimerLocked()
	unsubscribe := m.unsubscribe
	m.unsubscribe = nil
	m.unlock()

	// outside the lock: some adapters wait for an in-flight callback to return
	if unsubscribe != nil {
		unsubscribe()
	}
}

func (m *Manager) State() State {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.state
}

// Session returns the session in use, or the zero session.
func (m *Manager) Session() sessions.Session {
	m.lock.Lock()
	defer m.lock.Unlock()
	if !m.state.HasSession() {
		return sessions.Session{}
	}
	return m.session
}

// Claims returns the decoded claims of the token in use.
func (m *Manager) Claims() (token.Claims, bool) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if !m.state.HasSession() {
		return token.Claims{}, false
	}
	return m.claims, true
}

// Current returns the session in use together with its decoded claims, read
// under one lock so that the token and its expiry always match.
func (m *Manager) Current() (sessions.Session, token.Claims, bool) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if !m.state.HasSession() {
		return sessions.Session{}, token.Claims{}, false
	}
	return m.session, m.claims, true
}

// onExternalChange reacts to another instance mutating the store.
func (m *Manager) onExternalChange() {
	m.lock.Lock()
	defer m.unlock()

	if m.closed || m.state == StateAuthenticating {
		return
	}

	stored := m.store.Get()
	claims, err := m.validate(stored)

	if !m.state.HasSession() {
		if err == nil {
			m.adoptLocked(stored, claims)
			m.logger.Info().Str("login", stored.Login).Msg("Session: adopted session from another client")
		}
		return
	}

	if err != nil {
		login := m.session.Login
		if !stored.IsZero() {
			m.store.Clear()
		}
		m.dropSessionLocked(StateLoggedOut)
		m.metrics.Expired("external_change")
		reason := errors.Wrap(ErrStorageInvalidated, err.Error())
		m.logger.Info().Err(reason).Str("login", login).Msg("Session: invalidated by another client")
		m.notifyLocked(notify.KindSessionExpired, login, reason)
		return
	}

	if stored == m.session {
		return
	}
	m.session = stored
	m.claims = claims
	if m.state == StateAuthenticated {
		m.armLocked(claims.Expiry)
	}
	m.logger.Debug().Str("login", stored.Login).Str("accessLevel", stored.AccessLevel.String()).Msg("Session: updated by another client")
}

// validate checks that a stored session can be used at time now.
func (m *Manager) validate(stored sessions.Session) (token.Claims, error) {
	if stored.AccessToken == "" {
		return token.Claims{}, ErrNotAuthenticated
	}
	claims, err := m.codec.Decode(stored.AccessToken)
	if err != nil {
		return token.Claims{}, err
	}
	if token.IsExpired(claims, m.clock.Now()) {
		return token.Claims{}, ErrSessionExpired
	}
	if stored.Login != claims.Subject {
		return token.Claims{}, errors.Wrapf(ErrLoginMismatch, "stored login %q, subject %q", stored.Login, claims.Subject)
	}
	if !stored.AccessLevel.Grantable() || !claims.AccessLevels.Contains(stored.AccessLevel) {
		return token.Claims{}, errors.Wrapf(ErrAccessLevelNotGranted, "stored level %q", stored.AccessLevel)
	}
	return claims, nil
}

func (m *Manager) adoptLocked(session sessions.Session, claims token.Claims) {
	m.session = session
	m.claims = claims
	m.setStateLocked(StateAuthenticated)
	m.armLocked(claims.Expiry)
}

func (m *Manager) dropSessionLocked(state State) {
	m.stopTimerLocked()
	m.sessionGen++
	m.session = sessions.Session{}
	m.claims = token.Claims{}
	m.setStateLocked(state)
}

// armLocked replaces the refresh timer with one for a token expiring at expiry.
func (m *Manager) armLocked(expiry time.Time) {
	m.stopTimerLocked()
	gen := m.timerGen
	delay := RefreshDelay(expiry, m.clock.Now(), m.ratio)
	m.timer = m.clock.AfterFunc(delay, func() {
		m.onRefreshTimer(gen)
	})
	m.logger.Debug().Dur("delay", delay).Time("expiry", expiry).Msg("Session: refresh scheduled")
}

func (m *Manager) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.timerGen++
}

func (m *Manager) setStateLocked(state State) {
	m.state = state
	m.metrics.SetState(state.String(), stateNames)
}

func (m *Manager) notifyLocked(kind notify.Kind, login string, reason error) {
	m.outbox = append(m.outbox, notify.NewEvent(kind, login, reason, m.clock.Now()))
}

// unlock releases the lock and then delivers notifications queued while it was
// held, so that notifiers may call back into the manager.
func (m *Manager) unlock() {
	events := m.outbox
	m.outbox = nil
	m.lock.Unlock()
	for _, e := range events {
		m.notifier.Notify(e)
	}
}
