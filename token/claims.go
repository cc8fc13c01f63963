package token

import (
	"time"

	"github.com/jrsteele09/go-estate-session/accesslevel"
)

// Claims are the decoded payload fields of a bearer token that the session core
// relies on. Expiry is an absolute instant with second precision.
type Claims struct {
	Subject      string          // Login the token was issued to
	AccessLevels accesslevel.Set // Levels granted, in token order
	Expiry       time.Time       // Absolute expiry instant (exp claim)
}

// IsExpired reports whether the claims are expired at now. A token whose expiry
// equals now is expired.
func IsExpired(c Claims, now time.Time) bool {
	return !c.Expiry.After(now)
}

// Remaining returns the time left until expiry as seen from now. It is negative
// once the token has expired.
func (c Claims) Remaining(now time.Time) time.Duration {
	return c.Expiry.Sub(now)
}
