package users_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-estate-session/accesslevel"
	apperrors "github.com/jrsteele09/go-estate-session/internal/errors"
	"github.com/jrsteele09/go-estate-session/users"
	fakeuserrepo "github.com/jrsteele09/go-estate-session/users/repofake"
)

func TestValidatePasswordStrength(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid", "Password1", false},
		{"too short", "Pa1", true},
		{"no upper", "password1", true},
		{"no lower", "PASSWORD1", true},
		{"no number", "Password", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := users.ValidatePasswordStrength(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNew(t *testing.T) {
	u, err := users.New("alice", "alice@example.com", "Password1", accesslevel.Owner, accesslevel.Owner, accesslevel.None, accesslevel.Admin)
	require.NoError(t, err)

	assert.Equal(t, "alice", u.Login)
	assert.Equal(t, accesslevel.Set{accesslevel.Owner, accesslevel.Admin}, u.AccessLevels)
	assert.True(t, u.CanLogin())
	assert.True(t, u.CheckPassword([]byte("Password1")))
	assert.False(t, u.CheckPassword([]byte("password1")))
	assert.NotEqual(t, "Password1", u.PasswordHash)
}

func TestNew_Rejects(t *testing.T) {
	_, err := users.New("", "", "Password1", accesslevel.Owner)
	assert.Error(t, err)

	_, err = users.New("bob", "", "weak", accesslevel.Owner)
	assert.Error(t, err)

	_, err = users.New("bob", "", "Password1")
	assert.ErrorIs(t, err, accesslevel.ErrNoAccessLevel)
}

func TestCanLogin(t *testing.T) {
	u, err := users.New("alice", "", "Password1", accesslevel.Manager)
	require.NoError(t, err)

	u.Blocked = true
	assert.False(t, u.CanLogin())

	u.Blocked, u.Verified = false, false
	assert.False(t, u.CanLogin())
}

func TestFakeUserRepo(t *testing.T) {
	ctx := context.Background()
	repo := fakeuserrepo.NewFakeUserRepo()

	alice, err := users.New("alice", "alice@example.com", "Password1", accesslevel.Owner)
	require.NoError(t, err)
	bob, err := users.New("bob", "bob@example.com", "Password1", accesslevel.Manager, accesslevel.Admin)
	require.NoError(t, err)
	require.NoError(t, repo.Upsert(ctx, alice))
	require.NoError(t, repo.Upsert(ctx, bob))
	require.NotEmpty(t, alice.ID)

	got, err := repo.GetByLogin(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, bob.ID, got.ID)

	// returned users are copies
	got.AccessLevels[0] = accesslevel.Owner
	again, err := repo.GetByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, accesslevel.Manager, again.AccessLevels[0])

	list, err := repo.List(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "alice", list[0].Login)

	list, err = repo.List(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "bob", list[0].Login)

	list, err = repo.List(ctx, 5, 10)
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, repo.SetBlocked(ctx, "alice", true))
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SetLastLogin(ctx, "alice", at))
	got, err = repo.GetByLogin(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, got.Blocked)
	assert.Equal(t, at, got.LastLogin)

	require.NoError(t, repo.Delete(ctx, "alice"))
	_, err = repo.GetByLogin(ctx, "alice")
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "alice"), apperrors.ErrUserNotFound)
	assert.ErrorIs(t, repo.SetBlocked(ctx, "alice", false), apperrors.ErrUserNotFound)
}
