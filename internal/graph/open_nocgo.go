//go:build !cgo

package graph

import "errors"

// ErrNoPersistentStore is returned by OpenStore for a non-empty path in
// binaries built without cgo.
var ErrNoPersistentStore = errors.New("graph: persistent store requires a cgo build")

// OpenStore returns an in-memory store. Persistent paths are rejected
// because KuzuDB is unavailable without cgo.
func OpenStore(path string) (Store, error) {
	if path != "" {
		return nil, ErrNoPersistentStore
	}
	return NewMemStore(), nil
}
