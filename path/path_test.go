package path

import (
	"testing"

	"distfs.io/errors"
)

func TestParseRoot(t *testing.T) {
	p, err := Parse("/")
	if err != nil {
		t.Fatal(err)
	}
	if !p.IsRoot() {
		t.Errorf("expected root")
	}
	if p.String() != "/" {
		t.Errorf("got %q, want /", p.String())
	}
}

func TestParseRejectsRelative(t *testing.T) {
	_, err := Parse("a/b")
	if !errors.Is(errors.InvalidPath, err) {
		t.Errorf("got %v, want InvalidPath", err)
	}
}

func TestParseRejectsColon(t *testing.T) {
	_, err := Parse("/a:b")
	if !errors.Is(errors.InvalidPath, err) {
		t.Errorf("got %v, want InvalidPath", err)
	}
}

func TestParseCollapsesSlashes(t *testing.T) {
	p, err := Parse("/a//b/")
	if err != nil {
		t.Fatal(err)
	}
	q, err := Parse("/a/b")
	if err != nil {
		t.Fatal(err)
	}
	if !p.Equal(q) {
		t.Errorf("%q != %q", p, q)
	}
}

// TestRoundTrip is property P6: Path.parse(p.toString()) == p.
func TestRoundTrip(t *testing.T) {
	cases := []string{"/", "/a", "/a/b/c", "/x/y"}
	for _, c := range cases {
		p, err := Parse(c)
		if err != nil {
			t.Fatal(err)
		}
		q, err := Parse(p.String())
		if err != nil {
			t.Fatal(err)
		}
		if !p.Equal(q) {
			t.Errorf("round trip failed for %q: got %q", c, q)
		}
	}
}

func TestAppend(t *testing.T) {
	p, err := Append(Root(), "a")
	if err != nil {
		t.Fatal(err)
	}
	if p.String() != "/a" {
		t.Errorf("got %q, want /a", p)
	}
	if _, err := Append(p, ""); !errors.Is(errors.InvalidComponent, err) {
		t.Errorf("empty component: got %v", err)
	}
	if _, err := Append(p, "x/y"); !errors.Is(errors.InvalidComponent, err) {
		t.Errorf("slash component: got %v", err)
	}
	if _, err := Append(p, "x:y"); !errors.Is(errors.InvalidComponent, err) {
		t.Errorf("colon component: got %v", err)
	}
}

func TestParentAndLast(t *testing.T) {
	if _, err := Root().Parent(); !errors.Is(errors.InvalidState, err) {
		t.Errorf("root parent: got %v", err)
	}
	if _, err := Root().Last(); !errors.Is(errors.InvalidState, err) {
		t.Errorf("root last: got %v", err)
	}
	abc, _ := Parse("/a/b/c")
	parent, err := abc.Parent()
	if err != nil {
		t.Fatal(err)
	}
	if parent.String() != "/a/b" {
		t.Errorf("got %q, want /a/b", parent)
	}
	last, err := abc.Last()
	if err != nil {
		t.Fatal(err)
	}
	if last != "c" {
		t.Errorf("got %q, want c", last)
	}
}

func TestIterate(t *testing.T) {
	abc, _ := Parse("/a/b/c")
	got := abc.Iterate()
	want := []string{"/", "/a", "/a/b", "/a/b/c"}
	if len(got) != len(want) {
		t.Fatalf("got %d elements, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].String() != w {
			t.Errorf("element %d: got %q, want %q", i, got[i], w)
		}
	}
	// Iterate must be restartable/idempotent: calling it twice gives
	// equal, independently-owned results.
	got2 := abc.Iterate()
	for i := range got {
		if !got[i].Equal(got2[i]) {
			t.Errorf("non-idempotent iterate at %d", i)
		}
	}
}

// TestIsSubpathOf is property P7.
func TestIsSubpathOf(t *testing.T) {
	root := Root()
	a, _ := Parse("/a")
	ab, _ := Parse("/a/b")
	x, _ := Parse("/x")

	if !a.IsSubpathOf(root) {
		t.Errorf("everything is a subpath of root")
	}
	if !a.IsSubpathOf(a) {
		t.Errorf("a path is a subpath of itself")
	}
	if !ab.IsSubpathOf(a) {
		t.Errorf("/a/b should be a subpath of /a")
	}
	if a.IsSubpathOf(ab) {
		t.Errorf("/a should not be a subpath of /a/b")
	}
	if x.IsSubpathOf(a) {
		t.Errorf("/x should not be a subpath of /a")
	}

	// a.isSubpathOf(b) && b.isSubpathOf(a) <=> a == b
	if (a.IsSubpathOf(ab) && ab.IsSubpathOf(a)) != a.Equal(ab) {
		t.Errorf("P7 violated for /a, /a/b")
	}
	if (a.IsSubpathOf(a) && a.IsSubpathOf(a)) != a.Equal(a) {
		t.Errorf("P7 violated for /a, /a")
	}
}

func TestCompareTotalOrder(t *testing.T) {
	a, _ := Parse("/a")
	b, _ := Parse("/b")
	ab, _ := Parse("/a/b")
	if a.Compare(b) >= 0 {
		t.Errorf("/a should sort before /b")
	}
	if b.Compare(a) <= 0 {
		t.Errorf("/b should sort after /a")
	}
	if a.Compare(a) != 0 {
		t.Errorf("/a should equal itself")
	}
	if a.Compare(ab) >= 0 {
		t.Errorf("/a should sort before /a/b lexicographically")
	}
}
