package users

import (
	"context"
	"time"
)

type Repo interface {
	Upsert(ctx context.Context, user *User) error
	Delete(ctx context.Context, login string) error
	GetByLogin(ctx context.Context, login string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	List(ctx context.Context, offset, limit int) ([]*User, error)
	SetBlocked(ctx context.Context, login string, blocked bool) error
	SetLastLogin(ctx context.Context, login string, at time.Time) error
}
