// Package rediskv stores sessions in Redis so that client instances on several
// hosts share one login. Writes are announced on a pub/sub channel tagged with
// the writer's instance ID.
package rediskv

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-estate-session/sessions"
)

const (
	defaultPrefix = "estate:session:"
	channelSuffix = "changes"
)

type KV struct {
	client     redis.UniversalClient
	prefix     string
	instanceID string
	logger     zerolog.Logger
}

var _ sessions.KV = (*KV)(nil)

type Option func(*KV)

// WithPrefix namespaces keys and the change channel, e.g. per user profile.
func WithPrefix(prefix string) Option {
	return func(k *KV) {
		k.prefix = prefix
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(k *KV) {
		k.logger = logger
	}
}

func New(client redis.UniversalClient, options ...Option) *KV {
	k := &KV{
		client:     client,
		prefix:     defaultPrefix,
		instanceID: uuid.NewString(),
		logger:     log.Logger,
	}
	for _, opt := range options {
		opt(k)
	}
	return k
}

// InstanceID identifies this client in change announcements.
func (k *KV) InstanceID() string {
	return k.instanceID
}

func (k *KV) Load(ctx context.Context, keys []string) (map[string]string, error) {
	if len(keys) == 0 {
		return map[string]string{}, nil
	}
	raw, err := k.client.MGet(ctx, k.keys(keys)...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}
	values := make(map[string]string, len(keys))
	for i, v := range raw {
		// nil marks a missing key
		if s, ok := v.(string); ok {
			values[keys[i]] = s
		}
	}
	return values, nil
}

func (k *KV) Save(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	pairs := make([]any, 0, len(values)*2)
	for key, v := range values {
		pairs = append(pairs, k.prefix+key, v)
	}
	_, err := k.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.MSet(ctx, pairs...)
		pipe.Publish(ctx, k.channel(), k.instanceID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save: %w", err)
	}
	return nil
}

func (k *KV) Delete(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := k.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, k.keys(keys)...)
		pipe.Publish(ctx, k.channel(), k.instanceID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

// Subscribe calls fn for every announcement made by another instance. The
// subscription is confirmed before Subscribe returns.
func (k *KV) Subscribe(fn func()) (func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pubsub := k.client.Subscribe(ctx, k.channel())
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", k.channel(), err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range pubsub.Channel() {
			if msg.Payload == k.instanceID {
				continue
			}
			fn()
		}
	}()

	return func() {
		if err := pubsub.Close(); err != nil {
			k.logger.Err(err).Str("channel", k.channel()).Msg("Redis session store: unsubscribe failed")
		}
		<-done
	}, nil
}

func (k *KV) keys(keys []string) []string {
	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = k.prefix + key
	}
	return prefixed
}

func (k *KV) channel() string {
	return k.prefix + channelSuffix
}
