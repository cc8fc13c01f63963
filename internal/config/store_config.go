package config

import (
	"strings"
	"time"
)

// Store kinds.
const (
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

type StoreConfig interface {
	GetStoreKind() string
	GetStoreDir() string
	GetPollInterval() time.Duration
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetRedisPrefix() string
}

type StoreValues struct {
	Kind          string        `env:"KIND" envDefault:"file"`
	Dir           string        `env:"DIR"`
	PollInterval  time.Duration `env:"POLL_INTERVAL" envDefault:"1s"`
	RedisAddr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string        `env:"REDIS_PREFIX" envDefault:"estate:session:"`
}

func (s *StoreValues) sanitize() {
	s.Kind = strings.ToLower(strings.TrimSpace(s.Kind))
	switch s.Kind {
	case StoreFile, StoreRedis, StoreMemory:
	default:
		s.Kind = StoreFile
	}
	if s.PollInterval <= 0 {
		s.PollInterval = time.Second
	}
}

type Store struct {
	v StoreValues
}

var _ StoreConfig = Store{}

func (s Store) GetStoreKind() string {
	return s.v.Kind
}

// GetStoreDir is empty when the default user config directory should be used.
func (s Store) GetStoreDir() string {
	return s.v.Dir
}

func (s Store) GetPollInterval() time.Duration {
	return s.v.PollInterval
}

func (s Store) GetRedisAddr() string {
	return s.v.RedisAddr
}

func (s Store) GetRedisPassword() string {
	return s.v.RedisPassword
}

func (s Store) GetRedisDB() int {
	return s.v.RedisDB
}

func (s Store) GetRedisPrefix() string {
	return s.v.RedisPrefix
}
