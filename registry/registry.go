// Package registry holds the set of storage servers known to the naming
// server (spec.md §4.C). It has no locking of its own: callers mutate it
// under the namespace monitor (distfs.io/naming).
package registry

import (
	"math/rand"

	"distfs.io/distfs"
	"distfs.io/errors"
)

// Registry is a set of storage-server handles with structural equality.
type Registry struct {
	handles map[distfs.StorageServerHandle]struct{}
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{handles: make(map[distfs.StorageServerHandle]struct{})}
}

// Contains reports whether h is already registered.
func (r *Registry) Contains(h distfs.StorageServerHandle) bool {
	_, ok := r.handles[h.Key()]
	return ok
}

// Add registers h. It fails with Duplicate if h is already present.
func (r *Registry) Add(h distfs.StorageServerHandle) error {
	const op = "registry.Add"
	if r.Contains(h) {
		return errors.E(op, errors.Duplicate)
	}
	r.handles[h.Key()] = struct{}{}
	return nil
}

// Len reports the number of registered handles.
func (r *Registry) Len() int {
	return len(r.handles)
}

// Random returns an arbitrary registered handle, or false if the registry
// is empty.
func (r *Registry) Random() (distfs.StorageServerHandle, bool) {
	if len(r.handles) == 0 {
		return distfs.StorageServerHandle{}, false
	}
	n := rand.Intn(len(r.handles))
	i := 0
	for h := range r.handles {
		if i == n {
			return h, true
		}
		i++
	}
	panic("unreachable")
}

// RandomExcluding returns an arbitrary registered handle not in exclude,
// or false if none exists.
func (r *Registry) RandomExcluding(exclude map[distfs.StorageServerHandle]struct{}) (distfs.StorageServerHandle, bool) {
	candidates := make([]distfs.StorageServerHandle, 0, len(r.handles))
	for h := range r.handles {
		if _, excluded := exclude[h]; !excluded {
			candidates = append(candidates, h)
		}
	}
	if len(candidates) == 0 {
		return distfs.StorageServerHandle{}, false
	}
	return candidates[rand.Intn(len(candidates))], true
}
