package config

import "time"

type BackendConfig interface {
	GetBackendURL() string
	GetBackendTimeout() time.Duration
}

type SessionConfig interface {
	GetRefreshRatio() float64
	GetStoreTimeout() time.Duration
	GetMetricsAddr() string
}

type BackendValues struct {
	URL     string        `env:"URL" envDefault:"http://localhost:8080"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"30s"`
}

type SessionValues struct {
	RefreshRatio float64       `env:"REFRESH_RATIO" envDefault:"0.9"`
	StoreTimeout time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`
	MetricsAddr  string        `env:"METRICS_ADDR"`
}

func (s *SessionValues) sanitize() {
	if s.RefreshRatio <= 0 || s.RefreshRatio > 1 {
		s.RefreshRatio = 0.9
	}
	if s.StoreTimeout <= 0 {
		s.StoreTimeout = 5 * time.Second
	}
}

type Backend struct {
	v BackendValues
}

var _ BackendConfig = Backend{}

func (b Backend) GetBackendURL() string {
	return b.v.URL
}

func (b Backend) GetBackendTimeout() time.Duration {
	return b.v.Timeout
}

type Session struct {
	v SessionValues
}

var _ SessionConfig = Session{}

func (s Session) GetRefreshRatio() float64 {
	return s.v.RefreshRatio
}

func (s Session) GetStoreTimeout() time.Duration {
	return s.v.StoreTimeout
}

// GetMetricsAddr is where `estate watch` serves Prometheus metrics; empty disables it.
func (s Session) GetMetricsAddr() string {
	return s.v.MetricsAddr
}
