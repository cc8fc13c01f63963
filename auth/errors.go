package auth

import (
	"github.com/pkg/errors"

	"github.com/jrsteele09/go-estate-session/accesslevel"
)

var (
	ErrLoginInProgress       = errors.New("login already in progress")
	ErrRefreshInProgress     = errors.New("session refresh in progress")
	ErrCredentialRejected    = errors.New("credentials rejected")
	ErrLoginAborted          = errors.New("login aborted")
	ErrNoAccessLevel         = accesslevel.ErrNoAccessLevel
	ErrNotAuthenticated      = errors.New("not authenticated")
	ErrSessionExpired        = errors.New("session expired")
	ErrStorageInvalidated    = errors.New("session invalidated by another client")
	ErrAccessLevelNotGranted = errors.New("access level not granted by token")
	ErrLoginMismatch         = errors.New("stored login does not match token subject")
	ErrManagerClosed         = errors.New("session manager closed")
)
