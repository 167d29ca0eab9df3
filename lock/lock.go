// Package lock implements the per-path fair reader/writer lock manager of
// spec.md §4.D — the heart of the naming server. Acquiring a lock on a
// path implicitly acquires shared locks on every strict ancestor first,
// in root-to-leaf order, which is what makes concurrent multi-path
// locking deadlock-free: every caller locks ancestors top-down in the
// same canonical order and never holds a descendant while taking an
// ancestor (spec.md §4.D "Deadlock avoidance").
//
// Per path, waiters are served strictly FIFO; consecutive compatible
// shared waiters at the head of a queue are released together as a
// batch. Exclusive waiters wait for the holder count to reach zero and
// never jump ahead of an earlier-enqueued shared waiter.
package lock

import (
	"sync"

	"distfs.io/errors"
	"distfs.io/path"
)

// waiter is a one-shot notification: ready is closed exactly once, when
// the waiter becomes runnable.
type waiter struct {
	exclusive bool
	ready     chan struct{}
}

// cell is the per-path LockCell of spec.md §3: a FIFO queue of pending
// waiters, a live holder count, and the mode (shared/exclusive) of the
// current holders.
type cell struct {
	mu        sync.Mutex
	queue     []*waiter
	holders   int
	exclusive bool
}

// runnable reports whether w, assumed to be at the head of its cell's
// queue, may proceed now. Callers must hold c.mu.
func runnable(c *cell, w *waiter) bool {
	if c.holders == 0 {
		return true
	}
	return !c.exclusive && !w.exclusive
}

// advance dequeues and runs every waiter at the head of c's queue that is
// currently runnable, batching consecutive compatible shared waiters.
// Callers must hold c.mu.
func advance(c *cell) {
	for len(c.queue) > 0 {
		head := c.queue[0]
		if !runnable(c, head) {
			return
		}
		c.queue = c.queue[1:]
		c.holders++
		c.exclusive = head.exclusive
		close(head.ready)
	}
}

// Manager is the naming server's lock table: a set of LockCells, one per
// path ever locked, created lazily on first acquisition and never
// destroyed. The table itself is guarded by a small mutex for lookup and
// insertion; each cell then has its own mutex, so unrelated paths never
// contend with each other (spec.md §5).
type Manager struct {
	tableMu sync.Mutex
	cells   map[string]*cell
}

// New returns an empty lock manager.
func New() *Manager {
	return &Manager{cells: make(map[string]*cell)}
}

func (m *Manager) cellFor(p path.Path) *cell {
	m.tableMu.Lock()
	defer m.tableMu.Unlock()
	key := p.String()
	c, ok := m.cells[key]
	if !ok {
		c = &cell{}
		m.cells[key] = c
	}
	return c
}

func (m *Manager) lookupCell(p path.Path) (*cell, bool) {
	m.tableMu.Lock()
	defer m.tableMu.Unlock()
	c, ok := m.cells[p.String()]
	return c, ok
}

// Acquire blocks until the caller holds a lock of the requested mode on
// target and the corresponding shared ancestor locks on every strict
// ancestor of target (spec.md §4.D). It does not validate that target
// exists in the namespace; callers (distfs.io/naming) are expected to
// have checked that under the namespace monitor before calling, and to
// translate a missing path into a NotFound error without ever blocking
// here.
func (m *Manager) Acquire(target path.Path, exclusive bool) {
	chain := target.Iterate()
	for i, p := range chain {
		mode := exclusive && i == len(chain)-1
		m.acquireOne(p, mode)
	}
}

func (m *Manager) acquireOne(p path.Path, exclusive bool) {
	c := m.cellFor(p)
	w := &waiter{exclusive: exclusive, ready: make(chan struct{})}
	c.mu.Lock()
	c.queue = append(c.queue, w)
	advance(c)
	c.mu.Unlock()

	<-w.ready
}

// Release releases the lock chain acquired by the matching Acquire call,
// walking from target up to the root. It fails with InvalidState if any
// path in the chain is unknown to the lock table or currently has no
// active holder — Release does not verify that the caller is actually
// among the holders or that exclusive matches the mode under which the
// lock was taken (spec.md §9 Open Questions): a concurrent release by a
// caller that never held the lock will corrupt the holder count.
func (m *Manager) Release(target path.Path, exclusive bool) error {
	const op = "lock.Release"
	chain := target.Iterate()
	for i := len(chain) - 1; i >= 0; i-- {
		p := chain[i]
		mode := exclusive && i == len(chain)-1
		if err := m.releaseOne(p, mode); err != nil {
			return errors.E(op, target.String(), err)
		}
	}
	return nil
}

func (m *Manager) releaseOne(p path.Path, exclusive bool) error {
	const op = "lock.releaseOne"
	_ = exclusive // not verified; see Release's doc comment.
	c, ok := m.lookupCell(p)
	if !ok {
		return errors.E(op, p.String(), errors.InvalidState, errors.Str("no such path has ever been locked"))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.holders == 0 {
		return errors.E(op, p.String(), errors.InvalidState, errors.Str("path has no active lock"))
	}
	c.holders--
	advance(c)
	return nil
}

// State reports the current holder count and mode for p, for use by
// tests. It returns ok=false if p has never been locked.
func (m *Manager) State(p path.Path) (holders int, exclusive bool, ok bool) {
	c, found := m.lookupCell(p)
	if !found {
		return 0, false, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.holders, c.exclusive, true
}
