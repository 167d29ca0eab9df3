package namespace

import (
	"reflect"
	"testing"

	"distfs.io/distfs"
	"distfs.io/errors"
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

func handle(addr string) distfs.StorageServerHandle {
	return distfs.StorageServerHandle{
		Data:    distfs.Endpoint{Transport: distfs.Remote, NetAddr: distfs.NetAddr(addr + "-data")},
		Control: distfs.Endpoint{Transport: distfs.Remote, NetAddr: distfs.NetAddr(addr + "-control")},
	}
}

func TestNewContainsRoot(t *testing.T) {
	idx := New()
	isDir, err := idx.IsDirectory(path.Root())
	if err != nil || !isDir {
		t.Fatalf("root should be a directory, got isDir=%v err=%v", isDir, err)
	}
}

func TestIsDirectoryUnknownPathFails(t *testing.T) {
	idx := New()
	if _, err := idx.IsDirectory(mustParse(t, "/nope")); !errors.Is(errors.NotFound, err) {
		t.Fatalf("got %v, want NotFound", err)
	}
}

func TestAddFileThenIsDirectoryFalse(t *testing.T) {
	idx := New()
	idx.AddDirectory(mustParse(t, "/a"))
	idx.AddFile(mustParse(t, "/a/f"), handle("s1"))

	isDir, err := idx.IsDirectory(mustParse(t, "/a/f"))
	if err != nil {
		t.Fatal(err)
	}
	if isDir {
		t.Fatal("a file path must report isDirectory=false")
	}
}

func TestListChildrenDeduplicatesAndSorts(t *testing.T) {
	idx := New()
	idx.AddDirectory(mustParse(t, "/a"))
	idx.AddDirectory(mustParse(t, "/a/dir1"))
	idx.AddFile(mustParse(t, "/a/file1"), handle("s1"))
	idx.AddFile(mustParse(t, "/a/file1"), handle("s2")) // second handle, same file: not a new child.

	got, err := idx.ListChildren(mustParse(t, "/a"))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"dir1", "file1"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestListChildrenNotFoundOnUnknown(t *testing.T) {
	idx := New()
	if _, err := idx.ListChildren(mustParse(t, "/nope")); !errors.Is(errors.NotFound, err) {
		t.Fatalf("got %v, want NotFound", err)
	}
}

func TestListChildrenNotADirectoryOnFile(t *testing.T) {
	idx := New()
	idx.AddFile(mustParse(t, "/f"), handle("s1"))
	if _, err := idx.ListChildren(mustParse(t, "/f")); !errors.Is(errors.NotFound, err) {
		t.Fatalf("got %v, want NotFound", err)
	}
}

func TestFileHandlesAccumulate(t *testing.T) {
	idx := New()
	p := mustParse(t, "/f")
	h1, h2 := handle("s1"), handle("s2")
	idx.AddFile(p, h1)
	idx.AddFile(p, h2)

	handles, ok := idx.FileHandles(p)
	if !ok || len(handles) != 2 {
		t.Fatalf("got handles=%v ok=%v, want 2 handles", handles, ok)
	}
}

func TestSetFileHandlesRejectsEmpty(t *testing.T) {
	idx := New()
	p := mustParse(t, "/f")
	idx.AddFile(p, handle("s1"))

	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic setting an empty handle set (I4)")
		}
	}()
	idx.SetFileHandles(p, map[distfs.StorageServerHandle]struct{}{})
}

// TestRemoveSubtreeReturnsPerFileHandles checks that RemoveSubtree reports
// exactly which files each handle hosted, so the caller can issue the
// correct per-file control-plane delete.
func TestRemoveSubtreeReturnsPerFileHandles(t *testing.T) {
	idx := New()
	idx.AddDirectory(mustParse(t, "/a"))
	h1, h2 := handle("s1"), handle("s2")
	idx.AddFile(mustParse(t, "/a/one"), h1)
	idx.AddFile(mustParse(t, "/a/two"), h2)

	freed := idx.RemoveSubtree(mustParse(t, "/a"))

	if len(freed[h1]) != 1 || freed[h1][0].String() != "/a/one" {
		t.Errorf("h1: got %v, want [/a/one]", freed[h1])
	}
	if len(freed[h2]) != 1 || freed[h2][0].String() != "/a/two" {
		t.Errorf("h2: got %v, want [/a/two]", freed[h2])
	}
	if idx.HasPath(mustParse(t, "/a")) || idx.HasPath(mustParse(t, "/a/one")) {
		t.Fatal("subtree should be fully removed")
	}
}

func TestRemoveSubtreeLeavesSiblingsAlone(t *testing.T) {
	idx := New()
	idx.AddDirectory(mustParse(t, "/a"))
	idx.AddDirectory(mustParse(t, "/b"))
	idx.AddFile(mustParse(t, "/b/f"), handle("s1"))

	idx.RemoveSubtree(mustParse(t, "/a"))

	if !idx.HasPath(mustParse(t, "/b")) || !idx.HasPath(mustParse(t, "/b/f")) {
		t.Fatal("removing /a must not affect /b")
	}
}
