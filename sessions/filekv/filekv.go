// Package filekv keeps the session in a JSON file under the user's config
// directory. Processes of the same user share it; changes made by other processes
// are picked up by polling.
package filekv

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-estate-session/sessions"
)

const (
	fileName            = "session.json"
	defaultPollInterval = time.Second
)

// DefaultDir returns the config directory following the XDG convention.
func DefaultDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "estate")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "estate")
}

type KV struct {
	dir          string
	pollInterval time.Duration
	logger       zerolog.Logger

	lock     sync.Mutex
	watchers map[*watcher]struct{}
}

var _ sessions.KV = (*KV)(nil)

type watcher struct {
	lastSeen []byte
}

type Option func(*KV)

func WithPollInterval(interval time.Duration) Option {
	return func(k *KV) {
		k.pollInterval = interval
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(k *KV) {
		k.logger = logger
	}
}

func New(dir string, options ...Option) *KV {
	k := &KV{
		dir:          dir,
		pollInterval: defaultPollInterval,
		logger:       log.Logger,
		watchers:     make(map[*watcher]struct{}),
	}
	for _, opt := range options {
		opt(k)
	}
	return k
}

// Path is the session file location.
func (k *KV) Path() string {
	return filepath.Join(k.dir, fileName)
}

func (k *KV) Load(_ context.Context, keys []string) (map[string]string, error) {
	k.lock.Lock()
	defer k.lock.Unlock()

	stored, _, err := k.read()
	if err != nil {
		return nil, err
	}
	values := make(map[string]string, len(keys))
	for _, key := range keys {
		if v, ok := stored[key]; ok {
			values[key] = v
		}
	}
	return values, nil
}

func (k *KV) Save(_ context.Context, values map[string]string) error {
	return k.update(func(stored map[string]string) {
		for key, v := range values {
			stored[key] = v
		}
	})
}

func (k *KV) Delete(_ context.Context, keys []string) error {
	return k.update(func(stored map[string]string) {
		for _, key := range keys {
			delete(stored, key)
		}
	})
}

// Subscribe polls the file and calls fn when its content changes for a reason
// other than a write through this KV.
func (k *KV) Subscribe(fn func()) (func(), error) {
	k.lock.Lock()
	_, data, err := k.read()
	if err != nil {
		k.lock.Unlock()
		return nil, err
	}
	w := &watcher{lastSeen: data}
	k.watchers[w] = struct{}{}
	k.lock.Unlock()

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(k.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if k.poll(w) {
					fn()
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			k.lock.Lock()
			delete(k.watchers, w)
			k.lock.Unlock()
		})
	}, nil
}

func (k *KV) poll(w *watcher) bool {
	k.lock.Lock()
	defer k.lock.Unlock()

	_, data, err := k.read()
	if err != nil {
		k.logger.Err(err).Str("path", k.Path()).Msg("File session store: poll failed")
		return false
	}
	if bytes.Equal(data, w.lastSeen) {
		return false
	}
	w.lastSeen = data
	return true
}

func (k *KV) update(fn func(map[string]string)) error {
	k.lock.Lock()
	defer k.lock.Unlock()

	stored, _, err := k.read()
	if err != nil {
		return err
	}
	fn(stored)

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session file: %w", err)
	}
	if err := k.write(data); err != nil {
		return err
	}
	for w := range k.watchers {
		w.lastSeen = data
	}
	return nil
}

// read returns the decoded file and its raw bytes. A missing or corrupt file reads
// as empty.
func (k *KV) read() (map[string]string, []byte, error) {
	data, err := os.ReadFile(k.Path())
	if os.IsNotExist(err) {
		return map[string]string{}, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read session file: %w", err)
	}
	stored := map[string]string{}
	if err := json.Unmarshal(data, &stored); err != nil {
		k.logger.Warn().Err(err).Str("path", k.Path()).Msg("File session store: ignoring corrupt session file")
		return map[string]string{}, data, nil
	}
	return stored, data, nil
}

// write replaces the file atomically via a temp file in the same directory.
func (k *KV) write(data []byte) error {
	if err := os.MkdirAll(k.dir, 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp, err := os.CreateTemp(k.dir, ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp session file: %w", err)
	}
	if err := os.Rename(tmpName, k.Path()); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}
