// Package kvstore provides the persistent string-keyed store behind the regdns cache.
package kvstore

import "context"

// Store is an opaque string to string map.
// Get reports false when key is absent.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}
