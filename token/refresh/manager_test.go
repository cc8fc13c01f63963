package refresh_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/jrsteele09/go-estate-session/internal/errors"
	"github.com/jrsteele09/go-estate-session/token/refresh"
	refreshrepofake "github.com/jrsteele09/go-estate-session/token/refresh/repofake"
)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func newManager(t *testing.T, expiry time.Duration) (*refresh.Manager, *refreshrepofake.FakeRefreshTokenRepo, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	repo := refreshrepofake.NewFakeRefreshTokenRepo()
	m, err := refresh.NewManager(repo, refresh.WithExpiry(expiry), refresh.WithNowFunc(clock.Now))
	require.NoError(t, err)
	return m, repo, clock
}

func TestNewManager_RequiresRepo(t *testing.T) {
	_, err := refresh.NewManager(nil)
	assert.Error(t, err)
}

func TestCreate_OneTokenPerUser(t *testing.T) {
	m, repo, _ := newManager(t, time.Hour)
	ctx := context.Background()

	first, err := m.Create(ctx, "u1", "alice")
	require.NoError(t, err)
	assert.Len(t, first, 64)

	second, err := m.Create(ctx, "u1", "alice")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.Equal(t, 1, repo.Len())

	_, err = repo.Get(ctx, first)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRotate(t *testing.T) {
	m, repo, _ := newManager(t, time.Hour)
	ctx := context.Background()

	token, err := m.Create(ctx, "u1", "alice")
	require.NoError(t, err)

	stored, next, err := m.Rotate(ctx, "alice", token)
	require.NoError(t, err)
	assert.Equal(t, "u1", stored.UserID)
	assert.NotEqual(t, token, next)
	assert.Equal(t, 1, repo.Len())

	// the old token is single use
	_, _, err = m.Rotate(ctx, "alice", token)
	assert.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
}

func TestRotate_WrongLogin(t *testing.T) {
	m, _, _ := newManager(t, time.Hour)
	ctx := context.Background()

	token, err := m.Create(ctx, "u1", "alice")
	require.NoError(t, err)

	_, _, err = m.Rotate(ctx, "bob", token)
	assert.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)

	// still usable by its owner
	_, _, err = m.Rotate(ctx, "alice", token)
	assert.NoError(t, err)
}

func TestRotate_Expired(t *testing.T) {
	m, repo, clock := newManager(t, time.Hour)
	ctx := context.Background()

	token, err := m.Create(ctx, "u1", "alice")
	require.NoError(t, err)

	clock.now = clock.now.Add(time.Hour + time.Second)
	_, _, err = m.Rotate(ctx, "alice", token)
	assert.ErrorIs(t, err, apperrors.ErrRefreshTokenExpired)
	assert.Equal(t, 0, repo.Len())
}

func TestRevoke(t *testing.T) {
	m, repo, _ := newManager(t, time.Hour)
	ctx := context.Background()

	_, err := m.Create(ctx, "u1", "alice")
	require.NoError(t, err)
	require.NoError(t, m.Revoke(ctx, "u1"))
	assert.Equal(t, 0, repo.Len())
	assert.NoError(t, m.Revoke(ctx, "u1"))
}
