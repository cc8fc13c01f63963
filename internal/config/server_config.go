package config

import (
	"fmt"
	"strings"
	"time"
)

const devJWTSecret = "estate-dev-secret"

type ServerConfig interface {
	CorsConfig
	GetPort() string
	GetJWTSecret() string
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
}

type ServerValues struct {
	Port               string        `env:"PORT" envDefault:"8080"`
	JWTSecret          string        `env:"JWT_SECRET"`
	AccessTokenExpiry  time.Duration `env:"ACCESS_TOKEN_EXPIRY" envDefault:"15m"`
	RefreshTokenExpiry time.Duration `env:"REFRESH_TOKEN_EXPIRY" envDefault:"168h"`
	AllowedOrigins     []string      `env:"ALLOWED_ORIGINS" envSeparator:","`
}

func (s *ServerValues) sanitize(environment string) {
	if s.JWTSecret == "" && (environment == "" || strings.EqualFold(environment, "DEV")) {
		s.JWTSecret = devJWTSecret
	}
	if s.AccessTokenExpiry <= 0 {
		s.AccessTokenExpiry = 15 * time.Minute
	}
	if s.RefreshTokenExpiry <= 0 {
		s.RefreshTokenExpiry = 7 * 24 * time.Hour
	}
}

type Server struct {
	v ServerValues
}

var _ ServerConfig = Server{}

func (s Server) GetPort() string {
	port := s.v.Port
	if port == "" {
		port = "8080"
	}
	if port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

// GetJWTSecret is empty outside DEV unless ESTATE_SERVER_JWT_SECRET is set.
func (s Server) GetJWTSecret() string {
	return s.v.JWTSecret
}

func (s Server) GetAccessTokenExpiry() time.Duration {
	return s.v.AccessTokenExpiry
}

func (s Server) GetRefreshTokenExpiry() time.Duration {
	return s.v.RefreshTokenExpiry
}
