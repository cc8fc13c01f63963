package token

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-estate-session/accesslevel"
	"github.com/pkg/errors"
)

// Issuer creates signed access tokens carrying the claims the session core decodes.
type Issuer struct {
	signer  Signer
	issuer  string
	expiry  time.Duration
	nowFunc func() time.Time
}

type IssuerOption func(*Issuer)

func WithIssuerName(name string) IssuerOption {
	return func(i *Issuer) {
		i.issuer = name
	}
}

func WithAccessTokenExpiry(expiry time.Duration) IssuerOption {
	return func(i *Issuer) {
		i.expiry = expiry
	}
}

func WithNowFunc(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.nowFunc = now
	}
}

func NewIssuer(signer Signer, options ...IssuerOption) *Issuer {
	i := &Issuer{
		signer: signer,
		issuer: "estate",
	}
	for _, opt := range options {
		opt(i)
	}
	if i.expiry == 0 {
		i.expiry = 15 * time.Minute
	}
	if i.nowFunc == nil {
		i.nowFunc = time.Now
	}
	return i
}

// Issue signs an access token for login granting levels.
func (i *Issuer) Issue(login string, levels accesslevel.Set) (string, error) {
	now := i.nowFunc()
	claims := jwtlib.MapClaims{
		"iss":    i.issuer,
		"sub":    login,
		"groups": levels.Strings(),
		"iat":    now.Unix(),
		"exp":    now.Add(i.expiry).Unix(),
		"jti":    uuid.New().String(),
	}
	signed, err := i.signer.Sign(claims)
	if err != nil {
		return "", errors.Wrap(err, "[Issuer.Issue] Sign")
	}
	return signed, nil
}

// Now returns the issuer's current time.
func (i *Issuer) Now() time.Time {
	return i.nowFunc()
}

// Expiry returns the lifetime of issued access tokens.
func (i *Issuer) Expiry() time.Duration {
	return i.expiry
}
