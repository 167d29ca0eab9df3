// Package replication implements the naming server's replication hook
// (spec.md §4.E): replicate a file to a new storage server once it has
// been read enough times, and invalidate all but one replica the moment
// anyone asks to write it. Both directions are advisory and best-effort —
// neither may block the triggering acquire on an unbounded wait, and
// neither may leave the namespace invariants (spec.md §3, I1–I4) violated
// on failure.
package replication

import (
	"sync"

	"golang.org/x/sync/errgroup"

	"distfs.io/distfs"
	"distfs.io/log"
	"distfs.io/path"
)

// DefaultThreshold is the shared-acquire count per file that triggers a
// copy to a new handle, per spec.md §9.
const DefaultThreshold = 20

// NamespaceView is the slice of the namespace index the coordinator needs.
// Implementations must be safe to call only while the caller holds the
// namespace monitor.
type NamespaceView interface {
	FileHandles(p path.Path) (map[distfs.StorageServerHandle]struct{}, bool)
	AddFile(p path.Path, handle distfs.StorageServerHandle)
	SetFileHandles(p path.Path, handles map[distfs.StorageServerHandle]struct{})
}

// RegistryView is the slice of the storage-server registry the
// coordinator needs.
type RegistryView interface {
	RandomExcluding(exclude map[distfs.StorageServerHandle]struct{}) (distfs.StorageServerHandle, bool)
}

// Dialer resolves a storage-server handle to live data/control
// interfaces. It is the only place replication touches the network.
type Dialer interface {
	Control(h distfs.StorageServerHandle) (distfs.ControlServer, error)
	Data(h distfs.StorageServerHandle) (distfs.DataServer, error)
}

// Metrics receives best-effort observability counts. A nil Metrics is
// valid; all methods are no-ops in that case.
type Metrics interface {
	IncInvalidation()
	IncCopy()
}

// Coordinator is the replication hook. It shares the namespace monitor
// (Mu) with distfs.io/naming.Coordinator: every method locks Mu for its
// quick bookkeeping, releases it for any outbound RPC, and reacquires it
// only to apply the namespace mutation — it is never held across an RPC
// (spec.md §5).
type Coordinator struct {
	Mu        *sync.Mutex
	NS        NamespaceView
	Registry  RegistryView
	Dialer    Dialer
	Metrics   Metrics
	Threshold int

	mu        sync.Mutex // guards readCount only
	readCount map[string]int
}

// New returns a Coordinator with the given threshold (DefaultThreshold if
// threshold <= 0).
func New(mu *sync.Mutex, ns NamespaceView, reg RegistryView, dialer Dialer, metrics Metrics, threshold int) *Coordinator {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Coordinator{
		Mu:        mu,
		NS:        ns,
		Registry:  reg,
		Dialer:    dialer,
		Metrics:   metrics,
		Threshold: threshold,
		readCount: make(map[string]int),
	}
}

// OnExclusiveAcquire runs the write-intent hook: it retains one handle for
// p's file, invalidating (best-effort) every other handle that was
// hosting it. It is a no-op if p is not a known file. Callers must not be
// holding Mu.
func (c *Coordinator) OnExclusiveAcquire(p path.Path) {
	const op = "replication.OnExclusiveAcquire"

	c.Mu.Lock()
	handles, ok := c.NS.FileHandles(p)
	if !ok || len(handles) == 0 {
		c.Mu.Unlock()
		return
	}
	var retain distfs.StorageServerHandle
	others := make([]distfs.StorageServerHandle, 0, len(handles)-1)
	first := true
	for h := range handles {
		if first {
			retain = h
			first = false
			continue
		}
		others = append(others, h)
	}
	c.Mu.Unlock()

	if len(others) > 0 {
		g := new(errgroup.Group)
		for _, h := range others {
			h := h
			g.Go(func() error {
				ctrl, err := c.Dialer.Control(h)
				if err != nil {
					log.Debug.Printf("%s: dial control %v: %v", op, h, err)
					return nil // Best-effort: dropped from fileMap below regardless.
				}
				if _, err := ctrl.Delete(p); err != nil {
					log.Debug.Printf("%s: delete %s on %v: %v", op, p, h, err)
				}
				return nil
			})
		}
		_ = g.Wait() // Every Go func above always returns nil; errors are swallowed in place.
	}

	c.Mu.Lock()
	c.NS.SetFileHandles(p, map[distfs.StorageServerHandle]struct{}{retain: {}})
	c.Mu.Unlock()

	if c.Metrics != nil && len(others) > 0 {
		c.Metrics.IncInvalidation()
	}
}

// OnSharedAcquire runs the read-intent hook: it bumps p's read counter
// and, once it reaches Threshold, resets it and attempts to replicate p
// to one additional, previously-unused storage server. It is a no-op if p
// is not a known file. Callers must not be holding Mu.
func (c *Coordinator) OnSharedAcquire(p path.Path) {
	const op = "replication.OnSharedAcquire"

	c.Mu.Lock()
	handles, ok := c.NS.FileHandles(p)
	if !ok {
		c.Mu.Unlock()
		return
	}
	c.mu.Lock()
	key := p.String()
	c.readCount[key]++
	hit := c.readCount[key] >= c.Threshold
	if hit {
		c.readCount[key] = 0
	}
	c.mu.Unlock()
	if !hit {
		c.Mu.Unlock()
		return
	}

	target, found := c.Registry.RandomExcluding(handles)
	var src distfs.StorageServerHandle
	for h := range handles {
		src = h
		break
	}
	c.Mu.Unlock()
	if !found {
		return
	}

	ctrl, err := c.Dialer.Control(target)
	if err != nil {
		log.Debug.Printf("%s: dial control %v: %v", op, target, err)
		return
	}
	srcData, err := c.Dialer.Data(src)
	if err != nil {
		log.Debug.Printf("%s: dial data %v: %v", op, src, err)
		return
	}
	copied, err := ctrl.Copy(p, srcData)
	if err != nil || !copied {
		log.Debug.Printf("%s: copy %s to %v failed: %v", op, p, target, err)
		return
	}

	c.Mu.Lock()
	c.NS.AddFile(p, target)
	c.Mu.Unlock()

	if c.Metrics != nil {
		c.Metrics.IncCopy()
	}
}
