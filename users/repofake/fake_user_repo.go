package fakeuserrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-estate-session/accesslevel"
	apperrors "github.com/jrsteele09/go-estate-session/internal/errors"
	"github.com/jrsteele09/go-estate-session/users"
)

var _ users.Repo = (*FakeUserRepo)(nil)

// FakeUserRepo keeps users in memory. Returned users are copies.
type FakeUserRepo struct {
	users    map[string]*users.User
	loginIDs map[string]string // login to user id
	lock     sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users:    make(map[string]*users.User),
		loginIDs: make(map[string]string),
	}
}

func (ur *FakeUserRepo) Upsert(_ context.Context, user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if previous, ok := ur.users[user.ID]; ok && previous.Login != user.Login {
		delete(ur.loginIDs, previous.Login)
	}
	ur.users[user.ID] = clone(user)
	ur.loginIDs[user.Login] = user.ID
	return nil
}

func (ur *FakeUserRepo) Delete(_ context.Context, login string) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	userID, ok := ur.loginIDs[login]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	delete(ur.loginIDs, login)
	delete(ur.users, userID)
	return nil
}

func (ur *FakeUserRepo) GetByLogin(_ context.Context, login string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.loginIDs[login]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return clone(ur.users[id]), nil
}

func (ur *FakeUserRepo) GetByID(_ context.Context, id string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	u, ok := ur.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return clone(u), nil
}

func (ur *FakeUserRepo) List(_ context.Context, offset, limit int) ([]*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	userList := make([]*users.User, 0, len(ur.users))
	for _, v := range ur.users {
		userList = append(userList, clone(v))
	}
	sort.Slice(userList, func(i, j int) bool {
		return userList[i].Login < userList[j].Login
	})

	if offset < 0 || offset >= len(userList) {
		return []*users.User{}, nil
	}
	end := len(userList)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return userList[offset:end], nil
}

func (ur *FakeUserRepo) SetBlocked(_ context.Context, login string, blocked bool) error {
	return ur.update(login, func(u *users.User) { u.Blocked = blocked })
}

func (ur *FakeUserRepo) SetLastLogin(_ context.Context, login string, at time.Time) error {
	return ur.update(login, func(u *users.User) { u.LastLogin = at })
}

func (ur *FakeUserRepo) update(login string, fn func(*users.User)) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	id, ok := ur.loginIDs[login]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	fn(ur.users[id])
	return nil
}

func clone(u *users.User) *users.User {
	c := *u
	c.AccessLevels = append(accesslevel.Set(nil), u.AccessLevels...)
	return &c
}
