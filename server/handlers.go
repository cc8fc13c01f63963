package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jrsteele09/go-estate-session/backend"
	apperrors "github.com/jrsteele09/go-estate-session/internal/errors"
	"github.com/jrsteele09/go-estate-session/users"
)

const (
	contentTypeJSON = "application/json"
	maxBodyBytes    = 1 << 16
)

// HealthHandler reports that the server is up.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// LoginHandler exchanges a login and password for a token pair.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req backend.LoginRequest
		if err := decodeJSON(w, r, &req); err != nil || req.Login == "" || req.Password == "" {
			writeJSONError(w, "login and password are required", http.StatusBadRequest)
			return
		}

		user, err := s.authenticate(r.Context(), req.Login, []byte(req.Password))
		if err != nil {
			s.logger.Info().Err(err).Str("login", req.Login).Msg("login refused")
			writeJSONError(w, publicMessage(err), statusFor(err))
			return
		}

		pair, err := s.issuePair(r.Context(), user)
		if err != nil {
			s.logger.Error().Err(err).Str("login", user.Login).Msg("failed to issue tokens")
			writeJSONError(w, "internal error", http.StatusInternalServerError)
			return
		}
		if err := s.repos.Users.SetLastLogin(r.Context(), user.Login, s.issuerNow()); err != nil {
			s.logger.Warn().Err(err).Str("login", user.Login).Msg("failed to record last login")
		}
		writeJSON(w, http.StatusOK, pair)
	}
}

// RefreshHandler rotates a refresh token and issues a new token pair.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req backend.RefreshRequest
		if err := decodeJSON(w, r, &req); err != nil || req.Login == "" || req.RefreshToken == "" {
			writeJSONError(w, "login and refreshToken are required", http.StatusBadRequest)
			return
		}

		stored, next, err := s.refresh.Rotate(r.Context(), req.Login, req.RefreshToken)
		if err != nil {
			s.logger.Info().Err(err).Str("login", req.Login).Msg("refresh refused")
			writeJSONError(w, publicMessage(err), statusFor(err))
			return
		}

		user, err := s.repos.Users.GetByID(r.Context(), stored.UserID)
		if err == nil && !user.CanLogin() {
			err = loginRefusal(user)
		}
		if err != nil {
			_ = s.refresh.Revoke(r.Context(), stored.UserID)
			s.logger.Info().Err(err).Str("login", req.Login).Msg("refresh refused")
			writeJSONError(w, publicMessage(err), statusFor(err))
			return
		}

		access, err := s.issuer.Issue(user.Login, user.AccessLevels)
		if err != nil {
			s.logger.Error().Err(err).Str("login", user.Login).Msg("failed to issue access token")
			writeJSONError(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, backend.TokenPair{AccessToken: access, RefreshToken: next})
	}
}

// MeHandler returns the profile of the bearer token's subject.
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			writeJSONError(w, "invalid token", http.StatusUnauthorized)
			return
		}
		user, err := s.repos.Users.GetByLogin(r.Context(), claims.Subject)
		if err != nil {
			writeJSONError(w, "user not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, backend.Profile{
			Login:        user.Login,
			Email:        user.Email,
			AccessLevels: user.AccessLevels.Strings(),
		})
	}
}

func (s *Server) authenticate(ctx context.Context, login string, password []byte) (*users.User, error) {
	defer clear(password)

	user, err := s.repos.Users.GetByLogin(ctx, login)
	if err != nil {
		// Don't reveal if user exists or not
		return nil, apperrors.ErrInvalidCredentials
	}
	if !user.CheckPassword(password) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if !user.CanLogin() {
		return nil, loginRefusal(user)
	}
	return user, nil
}

func (s *Server) issuePair(ctx context.Context, user *users.User) (backend.TokenPair, error) {
	access, err := s.issuer.Issue(user.Login, user.AccessLevels)
	if err != nil {
		return backend.TokenPair{}, err
	}
	rt, err := s.refresh.Create(ctx, user.ID, user.Login)
	if err != nil {
		return backend.TokenPair{}, err
	}
	return backend.TokenPair{AccessToken: access, RefreshToken: rt}, nil
}

func (s *Server) issuerNow() time.Time {
	return s.issuer.Now()
}

func loginRefusal(user *users.User) error {
	switch {
	case user.Blocked:
		return apperrors.ErrUserBlocked
	case !user.Verified:
		return apperrors.ErrUserNotVerified
	default:
		return apperrors.ErrInvalidCredentials
	}
}

func statusFor(err error) int {
	switch {
	case apperrors.Is(err, apperrors.ErrUserBlocked), apperrors.Is(err, apperrors.ErrUserNotVerified):
		return http.StatusForbidden
	case apperrors.Is(err, apperrors.ErrInvalidCredentials),
		apperrors.Is(err, apperrors.ErrUserNotFound),
		apperrors.Is(err, apperrors.ErrInvalidRefreshToken),
		apperrors.Is(err, apperrors.ErrRefreshTokenExpired),
		apperrors.Is(err, apperrors.ErrInvalidToken):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func publicMessage(err error) string {
	if statusFor(err) == http.StatusInternalServerError {
		return apperrors.ErrInternal.Error()
	}
	if apperrors.Is(err, apperrors.ErrUserNotFound) {
		return apperrors.ErrInvalidCredentials.Error()
	}
	return err.Error()
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return apperrors.Wrapf(apperrors.ErrInvalidRequest, "decode body: %v", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes the error body the estate client expects
func writeJSONError(w http.ResponseWriter, description string, statusCode int) {
	writeJSON(w, statusCode, backend.ErrorResponse{Error: description})
}
