package lock

import (
	"sync"
	"testing"
	"time"

	"distfs.io/path"
)

func mustParse(t *testing.T, s string) path.Path {
	t.Helper()
	p, err := path.Parse(s)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

// TestAcquireReleaseRestoresZero is property P2.
func TestAcquireReleaseRestoresZero(t *testing.T) {
	m := New()
	p := mustParse(t, "/a/b/c")

	m.Acquire(p, true)
	if err := m.Release(p, true); err != nil {
		t.Fatal(err)
	}

	for _, anc := range p.Iterate() {
		holders, _, ok := m.State(anc)
		if !ok {
			t.Fatalf("%s: expected a cell to exist", anc)
		}
		if holders != 0 {
			t.Errorf("%s: holders = %d, want 0", anc, holders)
		}
	}
}

func TestReleaseUnknownPathFails(t *testing.T) {
	m := New()
	p := mustParse(t, "/never/locked")
	if err := m.Release(p, false); err == nil {
		t.Fatal("expected InvalidState releasing an unknown path")
	}
}

func TestReleaseWithoutHolderFails(t *testing.T) {
	m := New()
	p := mustParse(t, "/a")
	m.Acquire(p, false)
	if err := m.Release(p, false); err != nil {
		t.Fatal(err)
	}
	if err := m.Release(p, false); err == nil {
		t.Fatal("expected InvalidState on a second release")
	}
}

// TestExclusiveMutualExclusion covers the mutual-exclusion half of
// property P3: threads taking exclusive locks on the same path never
// overlap, and every one of them completes. It does not check the order
// in which they complete.
func TestExclusiveMutualExclusion(t *testing.T) {
	m := New()
	p := mustParse(t, "/shared/resource")

	var mu sync.Mutex
	var order []int
	var active int
	var maxActive int

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			<-start
			m.Acquire(p, true)
			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			order = append(order, id)
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
			if err := m.Release(p, true); err != nil {
				t.Error(err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	if maxActive != 1 {
		t.Errorf("max concurrent exclusive holders = %d, want 1", maxActive)
	}
	if len(order) != 8 {
		t.Errorf("got %d completions, want 8", len(order))
	}
}

// TestHierarchicalBlocking is scenario 6: an exclusive lock on /a blocks a
// shared lock on /a/b until /a is released.
func TestHierarchicalBlocking(t *testing.T) {
	m := New()
	a := mustParse(t, "/a")
	ab := mustParse(t, "/a/b")

	m.Acquire(a, true)

	proceeded := make(chan struct{})
	go func() {
		m.Acquire(ab, false)
		close(proceeded)
	}()

	select {
	case <-proceeded:
		t.Fatal("shared acquire on /a/b proceeded while /a held exclusively")
	case <-time.After(30 * time.Millisecond):
		// Expected: still blocked.
	}

	if err := m.Release(a, true); err != nil {
		t.Fatal(err)
	}

	select {
	case <-proceeded:
	case <-time.After(time.Second):
		t.Fatal("shared acquire on /a/b never proceeded after /a released")
	}

	if err := m.Release(ab, false); err != nil {
		t.Fatal(err)
	}
	if err := m.Release(a, false); err == nil {
		t.Fatal("expected InvalidState: releasing /a/b already released its shared hold on /a")
	}
}

func TestSharedAcquiresConcurrently(t *testing.T) {
	m := New()
	p := mustParse(t, "/doc")

	m.Acquire(p, false)
	done := make(chan struct{})
	go func() {
		m.Acquire(p, false)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second shared acquire should not block behind the first")
	}

	holders, exclusive, ok := m.State(p)
	if !ok || holders != 2 || exclusive {
		t.Fatalf("got holders=%d exclusive=%v ok=%v, want 2 false true", holders, exclusive, ok)
	}

	if err := m.Release(p, false); err != nil {
		t.Fatal(err)
	}
	if err := m.Release(p, false); err != nil {
		t.Fatal(err)
	}
}

func TestExclusiveWaitsBehindEarlierShared(t *testing.T) {
	m := New()
	p := mustParse(t, "/queue")

	m.Acquire(p, false) // reader 1 holds.

	writerDone := make(chan struct{})
	go func() {
		m.Acquire(p, true)
		close(writerDone)
	}()

	time.Sleep(10 * time.Millisecond) // let the writer enqueue behind reader 1.

	// A third request, a reader enqueued after the writer, must not
	// overtake it.
	reader2Done := make(chan struct{})
	go func() {
		m.Acquire(p, false)
		close(reader2Done)
	}()

	select {
	case <-reader2Done:
		t.Fatal("later reader overtook an earlier-enqueued writer")
	case <-time.After(30 * time.Millisecond):
	}

	if err := m.Release(p, false); err != nil { // reader 1 releases.
		t.Fatal(err)
	}

	select {
	case <-writerDone:
	case <-time.After(time.Second):
		t.Fatal("writer never acquired after reader 1 released")
	}

	if err := m.Release(p, true); err != nil {
		t.Fatal(err)
	}

	select {
	case <-reader2Done:
	case <-time.After(time.Second):
		t.Fatal("reader 2 never acquired after writer released")
	}

	if err := m.Release(p, false); err != nil {
		t.Fatal(err)
	}
}
