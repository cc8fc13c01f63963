package users

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/jrsteele09/go-estate-session/accesslevel"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

type User struct {
	ID           string          `json:"id,omitempty"`          // Unique identifier for the user
	Login        string          `json:"login"`                 // Login name the user signs in with
	Email        string          `json:"email,omitempty"`       // User's email address
	PasswordHash string          `json:"-"`                     // Hashed version of the user's password - never serialize
	AccessLevels accesslevel.Set `json:"groups"`                // Levels granted to the user, in preference order
	DateJoined   time.Time       `json:"date_joined,omitempty"` // Date and time when the user registered
	LastLogin    time.Time       `json:"last_login,omitempty"`  // Last time the user logged in

	Verified bool `json:"verified,omitempty"` // Verified, has the user verified who they are
	Blocked  bool `json:"blocked,omitempty"`  // Blocked, has the user been blocked from logging in
}

// New builds a verified user with a hashed password. The password must pass
// ValidatePasswordStrength and at least one level must be granted.
func New(login, email, password string, levels ...accesslevel.Level) (*User, error) {
	login = strings.TrimSpace(login)
	if login == "" {
		return nil, errors.New("[users.New] login is required")
	}
	if err := ValidatePasswordStrength(password); err != nil {
		return nil, errors.Wrap(err, "[users.New] ValidatePasswordStrength")
	}
	set := make(accesslevel.Set, 0, len(levels))
	for _, l := range levels {
		if l.Grantable() && !set.Contains(l) {
			set = append(set, l)
		}
	}
	if len(set) == 0 {
		return nil, errors.Wrapf(accesslevel.ErrNoAccessLevel, "[users.New] %s", login)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, errors.Wrap(err, "[users.New] HashPassword")
	}
	return &User{
		Login:        login,
		Email:        email,
		PasswordHash: hash,
		AccessLevels: set,
		DateJoined:   time.Now().UTC(),
		Verified:     true,
	}, nil
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword reports whether password matches the user's hash.
func (u *User) CheckPassword(password []byte) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), password) == nil
}

// CanLogin reports whether the account may be issued tokens.
func (u *User) CanLogin() bool {
	return u.Verified && !u.Blocked && len(u.AccessLevels) > 0
}
