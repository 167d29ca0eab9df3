// Package naming implements the naming server's Coordinator, the service
// façade of spec.md §4.G that glues the path namespace, storage-server
// registry, lock manager, and replication coordinator into the externally
// callable operations (distfs.Service and distfs.Registration).
//
// The Coordinator is the single long-lived value that owns all of the
// naming server's mutable state (spec.md §9 "Global mutable state"); it is
// constructed once at startup by cmd/naming-server and passed explicitly
// rather than held in package-level globals.
package naming

import (
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"distfs.io/distfs"
	"distfs.io/errors"
	"distfs.io/lock"
	"distfs.io/log"
	"distfs.io/metric"
	"distfs.io/namespace"
	"distfs.io/path"
	"distfs.io/registration"
	"distfs.io/registry"
	"distfs.io/replication"
)

// Dialer resolves a storage-server handle to its live data/control
// interfaces. Any type satisfying distfs.io/replication.Dialer also
// satisfies this interface, and vice versa; they are kept as separate
// declarations so each package documents its own dependency rather than
// importing the other's.
type Dialer interface {
	Control(h distfs.StorageServerHandle) (distfs.ControlServer, error)
	Data(h distfs.StorageServerHandle) (distfs.DataServer, error)
}

// Coordinator is the naming server. It implements distfs.Service and
// distfs.Registration.
type Coordinator struct {
	// mu is the namespace monitor of spec.md §5: it guards ns, reg, and
	// is shared with repl so replication's bookkeeping is serialized
	// with every other namespace mutation. It is acquired and released
	// quickly and is never held across a blocking wait or an outbound
	// RPC.
	mu sync.Mutex

	ns     *namespace.Index
	reg    *registry.Registry
	locks  *lock.Manager
	repl   *replication.Coordinator
	dialer Dialer
	metric *metric.Registry
}

var (
	_ distfs.Service      = (*Coordinator)(nil)
	_ distfs.Registration = (*Coordinator)(nil)
)

// New constructs an empty Coordinator. dialer resolves registered storage
// handles to live interfaces for createFile, delete, and replication;
// metrics may be nil. threshold <= 0 uses replication.DefaultThreshold.
func New(dialer Dialer, metrics *metric.Registry, threshold int) *Coordinator {
	c := &Coordinator{
		ns:     namespace.New(),
		reg:    registry.New(),
		locks:  lock.New(),
		dialer: dialer,
		metric: metrics,
	}
	c.repl = replication.New(&c.mu, c.ns, c.reg, dialer, metrics, threshold)
	return c
}

// Lock implements distfs.Service. It blocks until the caller holds a lock
// of the requested mode on p (and shared locks on every strict ancestor),
// then runs the replication hook for file paths (spec.md §4.E).
func (c *Coordinator) Lock(p path.Path, exclusive bool) error {
	const op = "naming.Lock"

	c.mu.Lock()
	exists := c.ns.HasPath(p)
	c.mu.Unlock()
	if !exists {
		return errors.E(op, p.String(), errors.NotFound)
	}

	start := time.Now()
	c.locks.Acquire(p, exclusive)
	c.metric.ObserveLockWait(exclusive, time.Since(start))

	c.mu.Lock()
	isDir, err := c.ns.IsDirectory(p)
	c.mu.Unlock()
	if err != nil {
		// p was deleted between the existence check and the acquire
		// completing; nothing to replicate, the lock is still correctly
		// held (and will be released by the caller's matching Unlock).
		log.Debug.Printf("%s: %s vanished before replication hook: %v", op, p, err)
		return nil
	}
	if isDir {
		return nil
	}
	if exclusive {
		c.repl.OnExclusiveAcquire(p)
	} else {
		c.repl.OnSharedAcquire(p)
	}
	return nil
}

// Unlock implements distfs.Service.
func (c *Coordinator) Unlock(p path.Path, exclusive bool) error {
	const op = "naming.Unlock"
	if err := c.locks.Release(p, exclusive); err != nil {
		return errors.E(op, err)
	}
	return nil
}

// IsDirectory implements distfs.Service.
func (c *Coordinator) IsDirectory(p path.Path) (bool, error) {
	const op = "naming.IsDirectory"
	c.mu.Lock()
	defer c.mu.Unlock()
	isDir, err := c.ns.IsDirectory(p)
	if err != nil {
		return false, errors.E(op, err)
	}
	return isDir, nil
}

// List implements distfs.Service, returning dir's immediate children's
// component names.
func (c *Coordinator) List(dir path.Path) ([]string, error) {
	const op = "naming.List"
	c.mu.Lock()
	defer c.mu.Unlock()
	names, err := c.ns.ListChildren(dir)
	if err != nil {
		return nil, errors.E(op, err)
	}
	return names, nil
}

// CreateFile implements distfs.Service. It fails with NotFound if p's
// parent is missing or is not a directory, and with NoStorageAvailable if
// the registry is empty. It returns false if p already exists.
//
// If the storage-side create reports the file already existed there, this
// still returns true without recording p in fileMap — spec.md §4.G/§7
// document this as preserved, possibly-buggy, observed behavior: the
// namespace trusts the caller's next operation to proceed regardless.
func (c *Coordinator) CreateFile(p path.Path) (bool, error) {
	const op = "naming.CreateFile"

	c.mu.Lock()
	parent, err := p.Parent()
	if err != nil {
		c.mu.Unlock()
		return false, errors.E(op, p.String(), errors.NotFound)
	}
	isDir, err := c.ns.IsDirectory(parent)
	if err != nil || !isDir {
		c.mu.Unlock()
		return false, errors.E(op, p.String(), errors.NotFound)
	}
	if c.ns.HasPath(p) {
		c.mu.Unlock()
		return false, nil
	}
	if c.reg.Len() == 0 {
		c.mu.Unlock()
		return false, errors.E(op, errors.NoStorageAvailable)
	}
	h, _ := c.reg.Random()
	c.mu.Unlock()

	ctrl, err := c.dialer.Control(h)
	if err != nil {
		return false, errors.E(op, p.String(), errors.RemoteFailure, err)
	}
	created, err := ctrl.Create(p)
	if err != nil {
		return false, errors.E(op, p.String(), errors.RemoteFailure, err)
	}
	if !created {
		return true, nil
	}

	c.mu.Lock()
	c.ns.AddFile(p, h)
	c.mu.Unlock()
	return true, nil
}

// CreateDirectory implements distfs.Service. It fails with NotFound if
// p's parent is missing or is not a directory, and returns false if p
// already exists.
func (c *Coordinator) CreateDirectory(p path.Path) (bool, error) {
	const op = "naming.CreateDirectory"
	c.mu.Lock()
	defer c.mu.Unlock()

	parent, err := p.Parent()
	if err != nil {
		return false, errors.E(op, p.String(), errors.NotFound)
	}
	isDir, err := c.ns.IsDirectory(parent)
	if err != nil || !isDir {
		return false, errors.E(op, p.String(), errors.NotFound)
	}
	if c.ns.HasPath(p) {
		return false, nil
	}
	c.ns.AddDirectory(p)
	return true, nil
}

// Delete implements distfs.Service. It fails with NotFound if p is
// unknown and returns false on root (root cannot be deleted). Otherwise
// it removes p's whole subtree from the namespace, then issues a
// control-plane delete, per removed file, to the handle(s) that hosted
// it. Transport failures are surfaced after the in-memory mutation has
// completed, so namespace state always reflects the delete having
// logically occurred (spec.md §7).
func (c *Coordinator) Delete(p path.Path) (bool, error) {
	const op = "naming.Delete"

	c.mu.Lock()
	if !c.ns.HasPath(p) {
		c.mu.Unlock()
		return false, errors.E(op, p.String(), errors.NotFound)
	}
	if p.IsRoot() {
		c.mu.Unlock()
		return false, nil
	}
	freed := c.ns.RemoveSubtree(p)
	c.mu.Unlock()

	if len(freed) == 0 {
		return true, nil
	}

	g := new(errgroup.Group)
	for h, paths := range freed {
		h, paths := h, paths
		g.Go(func() error {
			ctrl, err := c.dialer.Control(h)
			if err != nil {
				return errors.E(op, errors.RemoteFailure, err)
			}
			var firstErr error
			for _, fp := range paths {
				if _, err := ctrl.Delete(fp); err != nil && firstErr == nil {
					firstErr = errors.E(op, fp.String(), errors.RemoteFailure, err)
				}
			}
			return firstErr
		})
	}
	if err := g.Wait(); err != nil {
		return true, err
	}
	return true, nil
}

// GetStorage implements distfs.Service. It fails with NotFound if p is
// not a known file.
func (c *Coordinator) GetStorage(p path.Path) (distfs.Endpoint, error) {
	const op = "naming.GetStorage"
	c.mu.Lock()
	defer c.mu.Unlock()

	handles, ok := c.ns.FileHandles(p)
	if !ok {
		return distfs.Endpoint{}, errors.E(op, p.String(), errors.NotFound)
	}
	var h distfs.StorageServerHandle
	for hh := range handles {
		h = hh
		break
	}
	return h.Data, nil
}

// Register implements distfs.Registration.
func (c *Coordinator) Register(data, control distfs.Endpoint, paths []path.Path) ([]path.Path, error) {
	const op = "naming.Register"
	c.mu.Lock()
	defer c.mu.Unlock()

	h := distfs.StorageServerHandle{Data: data, Control: control}
	toDelete, err := registration.Register(c.ns, c.reg, h, paths)
	if err != nil {
		return nil, errors.E(op, err)
	}
	if c.metric != nil {
		c.metric.AddRegistrationDuplicates(len(toDelete))
	}
	return toDelete, nil
}
