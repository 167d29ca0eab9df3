// Package registration implements the registration reconciler of
// spec.md §4.F: merging a newly joined storage server's advertised file
// list into the namespace, and telling it which of those paths it must
// delete locally because the namespace already knows them.
//
// Register performs no RPCs and blocks for no I/O; it is meant to be
// called by distfs.io/naming while holding the namespace monitor.
package registration

import (
	"distfs.io/distfs"
	"distfs.io/errors"
	"distfs.io/namespace"
	"distfs.io/path"
	"distfs.io/registry"
)

// Register adds h to reg and reconciles paths against ns. It fails with
// NullArgument if either of h's endpoints is the zero value, and with
// Duplicate if h is already registered. On success it returns the subset
// of paths the caller (the registering storage server) must delete
// locally, because the namespace already has an entry for them under a
// different handle.
func Register(ns *namespace.Index, reg *registry.Registry, h distfs.StorageServerHandle, paths []path.Path) ([]path.Path, error) {
	const op = "registration.Register"

	var zero distfs.Endpoint
	if h.Data == zero || h.Control == zero {
		return nil, errors.E(op, errors.NullArgument, errors.Str("data and control endpoints are required"))
	}
	if reg.Contains(h) {
		return nil, errors.E(op, errors.Duplicate)
	}
	if err := reg.Add(h); err != nil {
		return nil, errors.E(op, err)
	}

	var toDelete []path.Path
	for _, p := range paths {
		if p.IsRoot() {
			continue
		}
		if ns.HasPath(p) {
			toDelete = append(toDelete, p)
			continue
		}
		ns.AddFile(p, h)
		addMissingAncestors(ns, p)
	}
	return toDelete, nil
}

// addMissingAncestors walks from p's parent up toward the root, adding
// any ancestor not already known as a directory, and stopping at the
// first one that is already known (spec.md §4.F step 3).
func addMissingAncestors(ns *namespace.Index, p path.Path) {
	chain := p.Iterate()
	ancestors := chain[:len(chain)-1] // root ... parent, excluding p itself.
	for i := len(ancestors) - 1; i >= 0; i-- {
		a := ancestors[i]
		if a.IsRoot() {
			break // the root always already exists.
		}
		if ns.HasPath(a) {
			break
		}
		ns.AddDirectory(a)
	}
}
