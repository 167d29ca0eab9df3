// Package namespace implements the naming server's directory/file index
// (spec.md §4.B): the set of known directories and the mapping from file
// path to the storage-server handles that host it, together with the
// joint invariants I1–I4 that must hold across both at every quiescent
// point (spec.md §3).
//
// Index has no locking of its own. Every exported method assumes the
// caller holds the namespace monitor (distfs.io/naming.Coordinator) for
// the duration of the call; none of them block or perform I/O.
package namespace

import (
	"sort"

	"distfs.io/distfs"
	"distfs.io/errors"
	"distfs.io/path"
)

// Index is the two collaborating structures of spec.md §3: directorySet
// and fileMap.
type Index struct {
	directorySet map[string]path.Path
	fileMap      map[string]fileEntry
}

type fileEntry struct {
	path    path.Path
	handles map[distfs.StorageServerHandle]struct{}
}

// New returns an Index containing only the root directory.
func New() *Index {
	idx := &Index{
		directorySet: make(map[string]path.Path),
		fileMap:      make(map[string]fileEntry),
	}
	idx.directorySet[path.Root().String()] = path.Root()
	return idx
}

// HasPath reports whether p is known, as either a directory or a file.
func (idx *Index) HasPath(p path.Path) bool {
	key := p.String()
	if _, ok := idx.directorySet[key]; ok {
		return true
	}
	_, ok := idx.fileMap[key]
	return ok
}

// IsDirectory reports whether p is a directory. It fails with NotFound if
// p is neither a directory nor a file.
func (idx *Index) IsDirectory(p path.Path) (bool, error) {
	const op = "namespace.IsDirectory"
	key := p.String()
	if _, ok := idx.directorySet[key]; ok {
		return true, nil
	}
	if _, ok := idx.fileMap[key]; ok {
		return false, nil
	}
	return false, errors.E(op, p.String(), errors.NotFound)
}

// ListChildren returns the component names of dir's immediate children,
// de-duplicated and sorted. It fails with NotFound if dir is unknown or is
// not a directory. Callers must hold a shared lock on dir and its
// ancestors (spec.md §4.B) so the result is stable despite concurrent
// mutation of unrelated subtrees.
func (idx *Index) ListChildren(dir path.Path) ([]string, error) {
	const op = "namespace.ListChildren"
	isDir, err := idx.IsDirectory(dir)
	if err != nil {
		return nil, errors.E(op, dir.String(), err)
	}
	if !isDir {
		return nil, errors.E(op, dir.String(), errors.NotFound, errors.Str("not a directory"))
	}
	seen := make(map[string]struct{})
	for _, p := range idx.directorySet {
		addChildOf(dir, p, seen)
	}
	for _, e := range idx.fileMap {
		addChildOf(dir, e.path, seen)
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func addChildOf(dir, candidate path.Path, seen map[string]struct{}) {
	if candidate.IsRoot() || !candidate.IsSubpathOf(dir) || candidate.Equal(dir) {
		return
	}
	parent, err := candidate.Parent()
	if err != nil || !parent.Equal(dir) {
		return
	}
	last, _ := candidate.Last()
	seen[last] = struct{}{}
}

// AddDirectory records p as a directory. The caller is responsible for
// having verified that p's parent is a directory (I2) before calling.
func (idx *Index) AddDirectory(p path.Path) {
	idx.directorySet[p.String()] = p
}

// AddFile records p as a file hosted by handle. If p is already a file,
// handle is added to its existing handle set instead of replacing it.
func (idx *Index) AddFile(p path.Path, handle distfs.StorageServerHandle) {
	key := p.String()
	e, ok := idx.fileMap[key]
	if !ok {
		e = fileEntry{path: p, handles: make(map[distfs.StorageServerHandle]struct{})}
	}
	e.handles[handle] = struct{}{}
	idx.fileMap[key] = e
}

// FileHandles returns the set of handles hosting file p, or (nil, false)
// if p is not a known file.
func (idx *Index) FileHandles(p path.Path) (map[distfs.StorageServerHandle]struct{}, bool) {
	e, ok := idx.fileMap[p.String()]
	if !ok {
		return nil, false
	}
	return e.handles, true
}

// SetFileHandles replaces the handle set for file p wholesale. It panics
// (an internal invariant violation, not a caller error) if the new set is
// empty, preserving I4.
func (idx *Index) SetFileHandles(p path.Path, handles map[distfs.StorageServerHandle]struct{}) {
	if len(handles) == 0 {
		panic("namespace: refusing to set an empty handle set for " + p.String())
	}
	e := idx.fileMap[p.String()]
	e.path = p
	e.handles = handles
	idx.fileMap[p.String()] = e
}

// RemoveSubtree deletes p and, if p is a directory, every path beneath it,
// from both directorySet and fileMap. It returns, for every handle that
// hosted any removed file, the list of file paths it hosted, so the
// caller can issue a control-plane delete per removed file to the
// handle(s) that actually held it.
func (idx *Index) RemoveSubtree(root path.Path) map[distfs.StorageServerHandle][]path.Path {
	freed := make(map[distfs.StorageServerHandle][]path.Path)
	for key, p := range idx.directorySet {
		if p.IsSubpathOf(root) {
			delete(idx.directorySet, key)
		}
	}
	for key, e := range idx.fileMap {
		if e.path.IsSubpathOf(root) {
			for h := range e.handles {
				freed[h] = append(freed[h], e.path)
			}
			delete(idx.fileMap, key)
		}
	}
	return freed
}
