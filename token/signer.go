package token

import (
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-estate-session/accesslevel"
	"github.com/pkg/errors"
)

// Signer is an interface for signing and verifying JWT tokens
type Signer interface {
	// Sign creates a signed JWT token from claims
	Sign(claims jwtlib.MapClaims) (string, error)

	// GetVerificationKey returns the key used to verify a parsed token
	GetVerificationKey(token *jwtlib.Token) (any, error)
}

// HMACsigner implements Signer using symmetric HMAC-SHA256
type HMACsigner struct {
	secret []byte
}

// NewHMACSigner creates a new HMAC signer with the given secret
func NewHMACSigner(secret string) *HMACsigner {
	return &HMACsigner{
		secret: []byte(secret),
	}
}

func (h *HMACsigner) Sign(claims jwtlib.MapClaims) (string, error) {
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(h.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token with HMAC")
	}
	return signedToken, nil
}

func (h *HMACsigner) GetVerificationKey(token *jwtlib.Token) (any, error) {
	if _, ok := token.Method.(*jwtlib.SigningMethodHMAC); !ok {
		return nil, errors.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return h.secret, nil
}

// Verify parses rawToken, checking its signature and expiry, and returns the
// subject and access level claims.
func Verify(signer Signer, rawToken string) (Claims, error) {
	var p payload
	parsed, err := jwtlib.ParseWithClaims(rawToken, &p, signer.GetVerificationKey, jwtlib.WithExpirationRequired())
	if err != nil {
		return Claims{}, errors.Wrap(err, "invalid token")
	}
	if !parsed.Valid {
		return Claims{}, errors.New("invalid token")
	}
	return Claims{
		Subject:      p.Subject,
		AccessLevels: accesslevel.NewSet(p.Groups...),
		Expiry:       p.ExpiresAt.Time.UTC(),
	}, nil
}
