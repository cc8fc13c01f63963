package accesslevel

import "strings"

// Level is a role granting a distinct permission set within the estate application.
// The string form is what the backend places in the token's "groups" claim and what
// is persisted as the current group.
type Level string

const (
	None    Level = "NONE" // No level selected
	Owner   Level = "OWNER"
	Manager Level = "MANAGER"
	Admin   Level = "ADMIN"
)

// Parse maps a group string onto a Level. Only grantable levels are recognised;
// NONE and unknown strings report false.
func Parse(s string) (Level, bool) {
	switch l := Level(strings.ToUpper(strings.TrimSpace(s))); l {
	case Owner, Manager, Admin:
		return l, true
	}
	return None, false
}

// Grantable reports whether the level can be held by a login.
func (l Level) Grantable() bool {
	return l == Owner || l == Manager || l == Admin
}

func (l Level) String() string {
	if l == "" {
		return string(None)
	}
	return string(l)
}

// Set is an ordered collection of distinct levels. Order is the order of first
// appearance in the token, which drives the default choice.
type Set []Level

// NewSet builds a Set from group strings, ignoring unknown values and duplicates.
func NewSet(groups ...string) Set {
	set := make(Set, 0, len(groups))
	for _, g := range groups {
		if l, ok := Parse(g); ok && !set.Contains(l) {
			set = append(set, l)
		}
	}
	return set
}

func (s Set) Contains(level Level) bool {
	for _, l := range s {
		if l == level {
			return true
		}
	}
	return false
}

// First returns the default level of the set, or None when empty.
func (s Set) First() Level {
	if len(s) == 0 {
		return None
	}
	return s[0]
}

func (s Set) Strings() []string {
	out := make([]string, 0, len(s))
	for _, l := range s {
		out = append(out, string(l))
	}
	return out
}
