package auth

type State int

const (
	StateLoggedOut State = iota
	StateAuthenticating
	StateAuthenticated
	StateRefreshPending
	StateExpired
)

var stateNames = []string{
	StateLoggedOut:      "logged_out",
	StateAuthenticating: "authenticating",
	StateAuthenticated:  "authenticated",
	StateRefreshPending: "refresh_pending",
	StateExpired:        "expired",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// HasSession reports whether the state carries a usable session.
func (s State) HasSession() bool {
	return s == StateAuthenticated || s == StateRefreshPending
}
