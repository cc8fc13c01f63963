package config

import (
	"errors"
	"fmt"
	"os"

	env "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const envPrefix = "ESTATE_"

type Config interface {
	EnvConfig
	BackendConfig
	SessionConfig
	StoreConfig
	ServerConfig
}

type EnvConfig interface {
	GetEnv() string
	IsDev() bool
	GetAppName() string
	GetLogLevel() string
	GetLogFormat() string
}

// Values is the raw configuration read from ESTATE_* environment variables.
type Values struct {
	Env       string `env:"ENV" envDefault:"DEV"`
	AppName   string `env:"APP_NAME" envDefault:"Estate"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`

	Backend BackendValues `envPrefix:"BACKEND_"`
	Session SessionValues `envPrefix:"SESSION_"`
	Store   StoreValues   `envPrefix:"STORE_"`
	Server  ServerValues  `envPrefix:"SERVER_"`
}

type mainConfig struct {
	EnvVars
	Backend
	Session
	Store
	Server
}

// Load reads an optional .env file and then the environment.
func Load(files ...string) (Config, error) {
	v, err := LoadValues(files...)
	if err != nil {
		return nil, err
	}
	return New(v), nil
}

// LoadValues is Load without building the Config, so callers such as command
// line flags can override individual values first.
func LoadValues(files ...string) (Values, error) {
	if err := godotenv.Load(files...); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return Values{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	var v Values
	if err := env.ParseWithOptions(&v, env.Options{Prefix: envPrefix}); err != nil {
		return Values{}, fmt.Errorf("parse config: %w", err)
	}
	return v, nil
}

// New builds a Config from values, applying defaults to out-of-range settings.
func New(v Values) Config {
	v.Session.sanitize()
	v.Store.sanitize()
	v.Server.sanitize(v.Env)
	return mainConfig{
		EnvVars: EnvVars{v: v},
		Backend: Backend{v: v.Backend},
		Session: Session{v: v.Session},
		Store:   Store{v: v.Store},
		Server:  Server{v: v.Server},
	}
}
