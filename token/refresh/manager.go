package refresh

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	apperrors "github.com/jrsteele09/go-estate-session/internal/errors"
	"github.com/pkg/errors"
)

const (
	defaultTokenLength = 32 // 256 bits
	defaultExpiry      = 7 * 24 * time.Hour
)

// Manager handles refresh token creation, validation, and rotation. Each user
// holds at most one refresh token and every successful Rotate replaces it.
type Manager struct {
	repo        Repo
	tokenLength int
	expiry      time.Duration
	nowFunc     func() time.Time
}

type Option func(*Manager)

func WithTokenLength(n int) Option {
	return func(m *Manager) {
		m.tokenLength = n
	}
}

func WithExpiry(expiry time.Duration) Option {
	return func(m *Manager) {
		m.expiry = expiry
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

// NewManager creates a new refresh token manager
func NewManager(repo Repo, options ...Option) (*Manager, error) {
	if repo == nil {
		return nil, errors.New("[NewManager] refresh token repo is required")
	}
	m := &Manager{
		repo:        repo,
		tokenLength: defaultTokenLength,
		expiry:      defaultExpiry,
		nowFunc:     time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	if m.tokenLength <= 0 {
		m.tokenLength = defaultTokenLength
	}
	if m.expiry <= 0 {
		m.expiry = defaultExpiry
	}
	return m, nil
}

// Create generates a new refresh token for the user, replacing any existing one.
func (m *Manager) Create(ctx context.Context, userID, login string) (string, error) {
	if existing, err := m.repo.GetByUserID(ctx, userID); err == nil && existing != nil {
		if err := m.repo.Delete(ctx, existing.Token); err != nil {
			return "", errors.Wrap(err, "[Manager.Create] delete existing refresh token")
		}
	}

	tokenBytes := make([]byte, m.tokenLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", errors.Wrap(err, "[Manager.Create] generate random bytes")
	}

	tokenStr := hex.EncodeToString(tokenBytes)
	if err := m.repo.Upsert(ctx, &StoredRefreshToken{
		Token:  tokenStr,
		UserID: userID,
		Login:  login,
		Iat:    m.nowFunc(),
	}); err != nil {
		return "", errors.Wrap(err, "[Manager.Create] store refresh token")
	}
	return tokenStr, nil
}

// Rotate validates token for login, deletes it and issues a replacement. An
// expired token is deleted and reported as apperrors.ErrRefreshTokenExpired.
func (m *Manager) Rotate(ctx context.Context, login, token string) (*StoredRefreshToken, string, error) {
	stored, err := m.repo.Get(ctx, token)
	if err != nil || stored == nil {
		return nil, "", apperrors.ErrInvalidRefreshToken
	}
	if stored.Login != login {
		return nil, "", apperrors.ErrInvalidRefreshToken
	}
	if err := m.repo.Delete(ctx, token); err != nil {
		return nil, "", errors.Wrap(err, "[Manager.Rotate] delete refresh token")
	}
	if m.IsExpired(stored) {
		return nil, "", apperrors.ErrRefreshTokenExpired
	}

	next, err := m.Create(ctx, stored.UserID, stored.Login)
	if err != nil {
		return nil, "", err
	}
	return stored, next, nil
}

// Revoke removes the user's refresh token, if any.
func (m *Manager) Revoke(ctx context.Context, userID string) error {
	existing, err := m.repo.GetByUserID(ctx, userID)
	if err != nil || existing == nil {
		return nil
	}
	return m.repo.Delete(ctx, existing.Token)
}

// IsExpired checks if a refresh token has outlived the configured expiry.
func (m *Manager) IsExpired(rt *StoredRefreshToken) bool {
	return m.nowFunc().Sub(rt.Iat) > m.expiry
}
