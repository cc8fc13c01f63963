package sessions

import "context"

// KV is the persistent key-value store behind a session. Implementations are
// shared by every client instance of the same origin.
type KV interface {
	// Load returns the values present for keys. Missing keys are absent from the map.
	Load(ctx context.Context, keys []string) (map[string]string, error)

	// Save writes all values in a single atomic operation.
	Save(ctx context.Context, values map[string]string) error

	// Delete removes all keys in a single atomic operation.
	Delete(ctx context.Context, keys []string) error

	// Subscribe registers fn to be called whenever another instance mutates the
	// store. Mutations made through this KV never trigger fn.
	Subscribe(fn func()) (cancel func(), err error)
}
