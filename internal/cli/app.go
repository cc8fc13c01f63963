// Package cli implements the estate terminal client: cobra commands driving one
// session manager per process over a store shared with other instances.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-estate-session/accesslevel"
	"github.com/jrsteele09/go-estate-session/auth"
	"github.com/jrsteele09/go-estate-session/backend"
	"github.com/jrsteele09/go-estate-session/internal/config"
	"github.com/jrsteele09/go-estate-session/internal/logging"
	"github.com/jrsteele09/go-estate-session/internal/metrics"
	"github.com/jrsteele09/go-estate-session/notify"
	"github.com/jrsteele09/go-estate-session/sessions"
)

const eventBuffer = 16

// App holds what the commands share: configuration, prompts and the store factory.
type App struct {
	prompter Prompter
	openKV   KVFactory
	stdin    io.Reader

	flags  flagValues
	cfg    config.Config
	logger zerolog.Logger
}

type flagValues struct {
	envFile     string
	backendURL  string
	storeKind   string
	storeDir    string
	logLevel    string
	metricsAddr string
	jsonOutput  bool
}

type Option func(*App)

// WithPrompter replaces the interactive terminal prompts.
func WithPrompter(p Prompter) Option {
	return func(a *App) {
		a.prompter = p
	}
}

// WithKVFactory replaces OpenKV.
func WithKVFactory(f KVFactory) Option {
	return func(a *App) {
		a.openKV = f
	}
}

func WithStdin(r io.Reader) Option {
	return func(a *App) {
		a.stdin = r
	}
}

func NewApp(options ...Option) *App {
	a := &App{
		prompter: huhPrompter{},
		openKV:   OpenKV,
		stdin:    os.Stdin,
		logger:   zerolog.Nop(),
	}
	for _, opt := range options {
		opt(a)
	}
	return a
}

// configure loads the configuration and applies command line overrides.
func (a *App) configure(stderr io.Writer) error {
	var files []string
	if a.flags.envFile != "" {
		files = append(files, a.flags.envFile)
	}
	v, err := config.LoadValues(files...)
	if err != nil {
		return err
	}
	if a.flags.backendURL != "" {
		v.Backend.URL = a.flags.backendURL
	}
	if a.flags.storeKind != "" {
		v.Store.Kind = a.flags.storeKind
	}
	if a.flags.storeDir != "" {
		v.Store.Dir = a.flags.storeDir
	}
	if a.flags.logLevel != "" {
		v.LogLevel = a.flags.logLevel
	}
	if a.flags.metricsAddr != "" {
		v.Session.MetricsAddr = a.flags.metricsAddr
	}
	a.cfg = config.New(v)
	a.logger = logging.New(a.cfg.GetLogLevel(), a.cfg.GetLogFormat(), stderr)
	return nil
}

// session is one started session manager and what it needs to be torn down.
type session struct {
	manager  *auth.Manager
	boundary *auth.Boundary
	events   *notify.Channel
	metrics  *metrics.Metrics
	close    func()
}

func (a *App) openSession(ctx context.Context) (*session, error) {
	kv, closeKV, err := a.openKV(ctx, a.cfg, a.logger)
	if err != nil {
		return nil, errors.Wrap(err, "open session store")
	}

	store := sessions.NewStore(kv, sessions.WithOpTimeout(a.cfg.GetStoreTimeout()), sessions.WithLogger(a.logger))
	client := backend.New(a.cfg.GetBackendURL(), backend.WithTimeout(a.cfg.GetBackendTimeout()))
	events := notify.NewChannel(eventBuffer)
	mt := metrics.New()

	m, err := auth.NewManager(store, client,
		auth.WithSelector(accesslevel.NewSelector(a.prompter, accesslevel.WithSelectorLogger(a.logger))),
		auth.WithNotifier(notify.Multi{events, notify.Log{Logger: a.logger}}),
		auth.WithRefreshRatio(a.cfg.GetRefreshRatio()),
		auth.WithLogger(a.logger),
		auth.WithMetrics(mt),
	)
	if err != nil {
		closeKV()
		return nil, err
	}
	if err := m.Start(ctx); err != nil {
		m.Close()
		closeKV()
		return nil, err
	}

	return &session{
		manager:  m,
		boundary: auth.NewBoundary(m),
		events:   events,
		metrics:  mt,
		close: func() {
			m.Close()
			closeKV()
		},
	}, nil
}
