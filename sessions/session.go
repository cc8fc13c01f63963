package sessions

import "github.com/jrsteele09/go-estate-session/accesslevel"

// Persisted key names. They are shared by every client instance using the same store.
const (
	KeyLogin        = "login"
	KeyAccessToken  = "jwt"
	KeyRefreshToken = "refreshToken"
	KeyAccessLevel  = "currentGroup"
)

// Keys lists every key owned by a session.
var Keys = []string{KeyLogin, KeyAccessToken, KeyRefreshToken, KeyAccessLevel}

// Session is the persisted state of an authenticated login.
type Session struct {
	Login        string            // Login the tokens belong to
	AccessToken  string            // Bearer token (JWT)
	RefreshToken string            // Opaque token exchanged for a new pair
	AccessLevel  accesslevel.Level // Level currently in use
}

func (s Session) IsZero() bool {
	return s == Session{}
}

func (s Session) values() map[string]string {
	return map[string]string{
		KeyLogin:        s.Login,
		KeyAccessToken:  s.AccessToken,
		KeyRefreshToken: s.RefreshToken,
		KeyAccessLevel:  string(s.AccessLevel),
	}
}

func sessionFromValues(values map[string]string) Session {
	return Session{
		Login:        values[KeyLogin],
		AccessToken:  values[KeyAccessToken],
		RefreshToken: values[KeyRefreshToken],
		AccessLevel:  accesslevel.Level(values[KeyAccessLevel]),
	}
}
