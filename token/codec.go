package token

import (
	"errors"
	"fmt"
	"strings"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-estate-session/accesslevel"
)

// ErrDecode marks a token that cannot be decoded into Claims. Callers treat it as
// "no valid session".
var ErrDecode = errors.New("malformed token")

// payload mirrors the JSON body of tokens issued by the estate backend.
type payload struct {
	jwtlib.RegisteredClaims
	Groups []string `json:"groups"`
}

// Codec decodes bearer tokens without verifying their signature. Verification
// belongs to the backend that issued the token.
type Codec struct {
	parser *jwtlib.Parser
}

func NewCodec() *Codec {
	return &Codec{parser: jwtlib.NewParser()}
}

// Decode extracts Claims from a raw token. Every failure wraps ErrDecode and no
// input causes a panic.
func (c *Codec) Decode(raw string) (claims Claims, err error) {
	defer func() {
		if r := recover(); r != nil {
			claims, err = Claims{}, fmt.Errorf("%w: %v", ErrDecode, r)
		}
	}()

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Claims{}, fmt.Errorf("%w: empty token", ErrDecode)
	}

	var p payload
	if _, _, err := c.parser.ParseUnverified(raw, &p); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if p.ExpiresAt == nil {
		return Claims{}, fmt.Errorf("%w: missing exp claim", ErrDecode)
	}
	if p.Subject == "" {
		return Claims{}, fmt.Errorf("%w: missing sub claim", ErrDecode)
	}

	return Claims{
		Subject:      p.Subject,
		AccessLevels: accesslevel.NewSet(p.Groups...),
		Expiry:       p.ExpiresAt.Time.UTC(),
	}, nil
}
