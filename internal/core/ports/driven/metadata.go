package driven

import "context"

// MetadataStore persists sync bookkeeping as key/value pairs.
type MetadataStore interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set upserts a value.
	Set(ctx context.Context, key, value string) error

	// All returns every stored pair.
	All(ctx context.Context) (map[string]string, error)
}
