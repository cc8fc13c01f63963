package auth

import (
	"context"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-estate-session/internal/metrics"
	"github.com/jrsteele09/go-estate-session/notify"
	"github.com/jrsteele09/go-estate-session/sessions"
	"github.com/jrsteele09/go-estate-session/token"
)

const refreshKey = "refresh"

// Refresh exchanges the refresh token for a new token pair now. Concurrent calls
// share one exchange. A failed refresh ends the session.
func (m *Manager) Refresh(ctx context.Context) error {
	_, err, _ := m.refreshGroup.Do(refreshKey, func() (any, error) {
		return nil, m.refresh(ctx)
	})
	return err
}

func (m *Manager) onRefreshTimer(gen uint64) {
	m.lock.Lock()
	if gen != m.timerGen || m.state != StateAuthenticated || m.closed {
		m.unlock()
		return
	}
	m.timer = nil
	m.unlock()

	if err := m.Refresh(context.Background()); err != nil {
		m.logger.Debug().Err(err).Msg("Session: scheduled refresh did not complete")
	}
}

func (m *Manager) refresh(ctx context.Context) error {
	m.lock.Lock()
	if m.state != StateAuthenticated {
		m.unlock()
		return ErrNotAuthenticated
	}
	m.stopTimerLocked()
	m.setStateLocked(StateRefreshPending)
	gen := m.sessionGen

	// another instance may have refreshed already
	if m.adoptFresherLocked() {
		m.setStateLocked(StateAuthenticated)
		m.armLocked(m.claims.Expiry)
		m.metrics.Refresh(metrics.ResultAdopted)
		m.unlock()
		return nil
	}
	current := m.session
	previous := m.claims
	m.unlock()

	pair, err := m.backend.Refresh(ctx, current.Login, current.RefreshToken)

	m.lock.Lock()
	defer m.unlock()

	if gen != m.sessionGen || m.state != StateRefreshPending {
		return errors.Wrap(ErrNotAuthenticated, "[Manager.Refresh] session ended while refreshing")
	}

	// another instance replaced the session while the request was in flight
	if m.session.Login != current.Login || m.session.RefreshToken != current.RefreshToken {
		m.setStateLocked(StateAuthenticated)
		m.armLocked(m.claims.Expiry)
		m.metrics.Refresh(metrics.ResultAdopted)
		m.logger.Debug().Str("login", m.session.Login).Msg("Session: refresh reply discarded, session replaced by another client")
		return nil
	}

	if err != nil {
		return m.failRefreshLocked(previous, errors.Wrap(err, "[Manager.Refresh] refresh request failed"))
	}

	claims, err := m.codec.Decode(pair.AccessToken)
	if err != nil {
		return m.failRefreshLocked(previous, errors.Wrap(err, "[Manager.Refresh] access token"))
	}
	if claims.Subject != current.Login {
		return m.failRefreshLocked(previous, errors.Wrapf(ErrLoginMismatch, "[Manager.Refresh] subject %q", claims.Subject))
	}
	if !claims.AccessLevels.Contains(m.session.AccessLevel) {
		return m.failRefreshLocked(previous, errors.Wrapf(ErrAccessLevelNotGranted, "[Manager.Refresh] %s", m.session.AccessLevel))
	}

	refreshed := sessions.Session{
		Login:        m.session.Login,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		AccessLevel:  m.session.AccessLevel,
	}

	// keep what another instance stored meanwhile if it is another user's
	// session or outlives ours
	stored := m.store.Get()
	if storedClaims, err := m.validate(stored); err == nil &&
		(stored.Login != refreshed.Login || storedClaims.Expiry.After(claims.Expiry)) {
		m.session = stored
		m.claims = storedClaims
		m.setStateLocked(StateAuthenticated)
		m.armLocked(storedClaims.Expiry)
		m.metrics.Refresh(metrics.ResultAdopted)
		return nil
	}

	m.store.Set(refreshed)
	m.session = refreshed
	m.claims = claims
	m.setStateLocked(StateAuthenticated)
	m.armLocked(claims.Expiry)
	m.metrics.Refresh(metrics.ResultSuccess)
	m.logger.Info().Str("login", refreshed.Login).Time("expiry", claims.Expiry).Msg("Session: refreshed")
	return nil
}

// adoptFresherLocked switches to the stored session if it is valid and its token
// expires later than the one in use.
func (m *Manager) adoptFresherLocked() bool {
	stored := m.store.Get()
	if stored.AccessToken == m.session.AccessToken {
		return false
	}
	claims, err := m.validate(stored)
	if err != nil || !claims.Expiry.After(m.claims.Expiry) {
		return false
	}
	m.session = stored
	m.claims = claims
	return true
}

// failRefreshLocked ends the session after a failed refresh, unless another
// instance stored a fresher session in the meantime (a rotated refresh token is
// rejected when the other instance used it first).
func (m *Manager) failRefreshLocked(previous token.Claims, cause error) error {
	stored := m.store.Get()
	if claims, err := m.validate(stored); err == nil && claims.Expiry.After(previous.Expiry) {
		m.session = stored
		m.claims = claims
		m.setStateLocked(StateAuthenticated)
		m.armLocked(m.claims.Expiry)
		m.metrics.Refresh(metrics.ResultAdopted)
		m.logger.Debug().Err(cause).Msg("Session: refresh failed but another client had refreshed")
		return nil
	}

	login := m.session.Login
	m.store.Clear()
	m.dropSessionLocked(StateExpired)
	m.metrics.Refresh(metrics.ResultError)
	m.metrics.Expired("refresh_failed")
	m.logger.Err(cause).Str("login", login).Msg("Session: refresh failed, session expired")
	m.notifyLocked(notify.KindSessionExpired, login, cause)
	return cause
}
