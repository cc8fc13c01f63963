package refresh

import (
	"context"
	"time"
)

// StoredRefreshToken represents the server-side storage of refresh token metadata.
// The client only receives the Token field (a random string).
type StoredRefreshToken struct {
	Token  string    // The actual random token string (sent to client)
	UserID string    // Owner of the token
	Login  string    // Login the token was issued to, checked on refresh
	Iat    time.Time // Issued at
}

// Repo manages server-side storage of refresh token metadata keyed by the token string.
type Repo interface {
	Upsert(ctx context.Context, refreshToken *StoredRefreshToken) error
	Delete(ctx context.Context, token string) error
	Get(ctx context.Context, token string) (*StoredRefreshToken, error)
	GetByUserID(ctx context.Context, userID string) (*StoredRefreshToken, error)
}
