package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-estate-session/internal/config"
	"github.com/jrsteele09/go-estate-session/token"
	"github.com/jrsteele09/go-estate-session/token/refresh"
	"github.com/jrsteele09/go-estate-session/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Repos are the storage dependencies of the development backend.
type Repos struct {
	Users         users.Repo
	RefreshTokens refresh.Repo
}

type Server struct {
	env     string // Environment (e.g., "DEV", "PROD")
	mux     *http.ServeMux
	routes  []string
	config  config.Config
	repos   Repos
	signer  token.Signer
	issuer  *token.Issuer
	refresh *refresh.Manager
	logger  zerolog.Logger
}

type Option func(*Server)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithIssuer replaces the issuer built from the config, e.g. to control token times in tests.
func WithIssuer(issuer *token.Issuer) Option {
	return func(s *Server) {
		s.issuer = issuer
	}
}

func WithRefreshManager(m *refresh.Manager) Option {
	return func(s *Server) {
		s.refresh = m
	}
}

func New(cfg config.Config, repos Repos, options ...Option) (*Server, error) {
	if repos.Users == nil {
		return nil, errors.New("[server.New] users repo is required")
	}
	if repos.RefreshTokens == nil {
		return nil, errors.New("[server.New] refresh token repo is required")
	}
	if cfg.GetJWTSecret() == "" {
		return nil, errors.New("[server.New] a JWT secret is required outside DEV")
	}

	s := &Server{
		env:    cfg.GetEnv(),
		mux:    http.NewServeMux(),
		config: cfg,
		repos:  repos,
		signer: token.NewHMACSigner(cfg.GetJWTSecret()),
		logger: log.Logger,
	}
	for _, opt := range options {
		opt(s)
	}
	if s.issuer == nil {
		s.issuer = token.NewIssuer(s.signer,
			token.WithIssuerName(cfg.GetAppName()),
			token.WithAccessTokenExpiry(cfg.GetAccessTokenExpiry()))
	}
	if s.refresh == nil {
		m, err := refresh.NewManager(repos.RefreshTokens, refresh.WithExpiry(cfg.GetRefreshTokenExpiry()))
		if err != nil {
			return nil, errors.Wrap(err, "[server.New] refresh.NewManager")
		}
		s.refresh = m
	}

	if s.env == "DEV" {
		if err := s.SeedDemoUsers(context.Background()); err != nil {
			return nil, errors.Wrap(err, "[server.New] SeedDemoUsers")
		}
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// Routes returns the registered route patterns.
func (s *Server) Routes() []string {
	return append([]string(nil), s.routes...)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			s.logger.Debug().Str("method", parts[0]).Str("path", parts[1]).Msg("route")
		} else {
			s.logger.Debug().Str("path", parts[0]).Msg("route")
		}
	}
}
