package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-estate-session/internal/config"
	"github.com/jrsteele09/go-estate-session/sessions"
	"github.com/jrsteele09/go-estate-session/sessions/filekv"
	"github.com/jrsteele09/go-estate-session/sessions/memkv"
	"github.com/jrsteele09/go-estate-session/sessions/rediskv"
)

// KVFactory opens the key-value store backing the session. The returned
// function releases it.
type KVFactory func(ctx context.Context, cfg config.Config, logger zerolog.Logger) (sessions.KV, func(), error)

// OpenKV picks the store configured by ESTATE_STORE_KIND.
func OpenKV(ctx context.Context, cfg config.Config, logger zerolog.Logger) (sessions.KV, func(), error) {
	switch cfg.GetStoreKind() {
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.GetRedisAddr(),
			Password: cfg.GetRedisPassword(),
			DB:       cfg.GetRedisDB(),
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.GetRedisAddr(), err)
		}
		kv := rediskv.New(client, rediskv.WithPrefix(cfg.GetRedisPrefix()), rediskv.WithLogger(logger))
		return kv, func() { _ = client.Close() }, nil

	case config.StoreMemory:
		tab := memkv.NewOrigin().Tab()
		return tab, tab.Close, nil

	default:
		dir := cfg.GetStoreDir()
		if dir == "" {
			dir = filekv.DefaultDir()
		}
		if dir == "" {
			return nil, nil, fmt.Errorf("no session directory: set ESTATE_STORE_DIR")
		}
		kv := filekv.New(dir, filekv.WithPollInterval(cfg.GetPollInterval()), filekv.WithLogger(logger))
		return kv, func() {}, nil
	}
}
