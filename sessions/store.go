package sessions

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Store exposes a session over a KV. Its operations never fail: KV errors are
// logged and Get degrades to the empty session, because a store that cannot be
// reached leaves no session to work with anyway.
type Store struct {
	kv        KV
	opTimeout time.Duration
	logger    zerolog.Logger
}

type StoreOption func(*Store)

// WithOpTimeout bounds every KV call made by the store.
func WithOpTimeout(timeout time.Duration) StoreOption {
	return func(s *Store) {
		s.opTimeout = timeout
	}
}

func WithLogger(logger zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

func NewStore(kv KV, options ...StoreOption) *Store {
	s := &Store{
		kv:        kv,
		opTimeout: 5 * time.Second,
		logger:    log.Logger,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Get reads the persisted session.
func (s *Store) Get() Session {
	ctx, cancel := s.context()
	defer cancel()

	values, err := s.kv.Load(ctx, Keys)
	if err != nil {
		s.logger.Err(err).Msg("Session store: load failed")
		return Session{}
	}
	return sessionFromValues(values)
}

// Set overwrites every session key at once.
func (s *Store) Set(session Session) {
	ctx, cancel := s.context()
	defer cancel()

	if err := s.kv.Save(ctx, session.values()); err != nil {
		s.logger.Err(err).Str("login", session.Login).Msg("Session store: save failed")
	}
}

// Clear removes every session key at once.
func (s *Store) Clear() {
	ctx, cancel := s.context()
	defer cancel()

	if err := s.kv.Delete(ctx, Keys); err != nil {
		s.logger.Err(err).Msg("Session store: clear failed")
	}
}

// OnExternalChange registers fn for mutations made by other instances. fn gets no
// data and must re-read with Get.
func (s *Store) OnExternalChange(fn func()) (cancel func()) {
	cancel, err := s.kv.Subscribe(fn)
	if err != nil {
		s.logger.Err(err).Msg("Session store: subscribe failed, external changes will not be observed")
		return func() {}
	}
	return cancel
}

func (s *Store) context() (context.Context, context.CancelFunc) {
	if s.opTimeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), s.opTimeout)
}
