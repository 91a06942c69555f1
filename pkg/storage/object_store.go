package storage

import "context"

// ObjectStore accepts uploads keyed by path and returns a publicly resolvable URL.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}
