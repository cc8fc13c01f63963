package backend

// Credentials are the login and password typed by the user. The password is held
// as bytes so that it can be overwritten once it is no longer needed.
type Credentials struct {
	Login    string
	Password []byte
}

// Scrub zeroes the password in place.
func (c *Credentials) Scrub() {
	if c == nil {
		return
	}
	clear(c.Password)
	c.Password = nil
}

// TokenPair is returned by both /login and /refresh.
type TokenPair struct {
	AccessToken  string `json:"jwt"`
	RefreshToken string `json:"refreshToken"`
}

type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	Login        string `json:"login"`
	RefreshToken string `json:"refreshToken"`
}

// Profile is the /me response.
type Profile struct {
	Login        string   `json:"login"`
	Email        string   `json:"email"`
	AccessLevels []string `json:"groups"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
