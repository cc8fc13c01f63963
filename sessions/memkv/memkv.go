// Package memkv is an in-process sessions.KV. An Origin holds the values shared by
// every Tab created from it, the way browser tabs of one site share localStorage.
package memkv

import (
	"context"
	"maps"
	"sync"

	"github.com/google/uuid"

	"github.com/jrsteele09/go-estate-session/sessions"
)

// Origin is the shared storage area.
type Origin struct {
	lock     sync.Mutex
	values   map[string]string
	tabs     map[string]*Tab
	inFlight sync.WaitGroup
}

func NewOrigin() *Origin {
	return &Origin{
		values: make(map[string]string),
		tabs:   make(map[string]*Tab),
	}
}

// Tab opens a new view onto the origin.
func (o *Origin) Tab() *Tab {
	t := &Tab{
		id:        uuid.NewString(),
		origin:    o,
		listeners: make(map[int]func()),
	}
	o.lock.Lock()
	o.tabs[t.id] = t
	o.lock.Unlock()
	return t
}

// Snapshot returns a copy of the stored values.
func (o *Origin) Snapshot() map[string]string {
	o.lock.Lock()
	defer o.lock.Unlock()
	return maps.Clone(o.values)
}

// Wait blocks until every change notification dispatched so far, and any
// dispatched while waiting, has returned.
func (o *Origin) Wait() {
	o.inFlight.Wait()
}

// mutate applies fn under the origin lock and notifies the other tabs if the
// stored values changed. Listeners run on their own goroutines, like storage
// events that are delivered after the writer's call returns.
func (o *Origin) mutate(writer string, fn func(values map[string]string)) {
	o.lock.Lock()
	before := maps.Clone(o.values)
	fn(o.values)
	if maps.Equal(before, o.values) {
		o.lock.Unlock()
		return
	}
	var listeners []func()
	for id, tab := range o.tabs {
		if id == writer {
			continue
		}
		listeners = append(listeners, tab.snapshotListeners()...)
	}
	o.inFlight.Add(len(listeners))
	o.lock.Unlock()

	for _, fn := range listeners {
		go func() {
			defer o.inFlight.Done()
			fn()
		}()
	}
}

// Tab is one client instance's view of an Origin.
type Tab struct {
	id     string
	origin *Origin

	lock      sync.Mutex
	listeners map[int]func()
	nextID    int
}

var _ sessions.KV = (*Tab)(nil)

func (t *Tab) ID() string {
	return t.id
}

func (t *Tab) Load(_ context.Context, keys []string) (map[string]string, error) {
	t.origin.lock.Lock()
	defer t.origin.lock.Unlock()

	values := make(map[string]string, len(keys))
	for _, key := range keys {
		if v, ok := t.origin.values[key]; ok {
			values[key] = v
		}
	}
	return values, nil
}

func (t *Tab) Save(_ context.Context, values map[string]string) error {
	t.origin.mutate(t.id, func(stored map[string]string) {
		maps.Copy(stored, values)
	})
	return nil
}

func (t *Tab) Delete(_ context.Context, keys []string) error {
	t.origin.mutate(t.id, func(stored map[string]string) {
		for _, key := range keys {
			delete(stored, key)
		}
	})
	return nil
}

func (t *Tab) Subscribe(fn func()) (func(), error) {
	t.lock.Lock()
	id := t.nextID
	t.nextID++
	t.listeners[id] = fn
	t.lock.Unlock()

	return func() {
		t.lock.Lock()
		delete(t.listeners, id)
		t.lock.Unlock()
	}, nil
}

// Close detaches the tab from its origin. It receives no further notifications.
func (t *Tab) Close() {
	t.origin.lock.Lock()
	delete(t.origin.tabs, t.id)
	t.origin.lock.Unlock()
}

func (t *Tab) snapshotListeners() []func() {
	t.lock.Lock()
	defer t.lock.Unlock()
	listeners := make([]func(), 0, len(t.listeners))
	for _, fn := range t.listeners {
		listeners = append(listeners, fn)
	}
	return listeners
}
