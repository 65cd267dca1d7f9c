//go:build cgo

package graph

// OpenStore opens a persistent KuzuDB store at path, or an in-memory
// KuzuDB when path is empty.
func OpenStore(path string) (Store, error) {
	if path == "" {
		return NewKuzuStore()
	}
	return NewKuzuFileStore(path)
}
