// Package path provides the immutable, absolute path value used to address
// everything in the namespace: directories, files, and their ancestors.
package path

import (
	gopath "path"
	"strings"

	"distfs.io/errors"
)

// Path is an immutable, absolute path rooted at "/". The zero value is the
// root. Paths compare and hash by their canonical string form, which is
// also their total order's key (see Compare), the order multi-path locking
// relies on to avoid deadlock.
type Path struct {
	// elems holds the path components, root to leaf. Empty (nil) for
	// the root.
	elems []string
}

// Root returns the root path "/".
func Root() Path {
	return Path{}
}

// Parse parses an absolute path string. The string must begin with "/".
// It must not contain ":" anywhere. Repeated and trailing slashes are
// ignored (empty segments are dropped), so "/a//b/" parses the same as
// "/a/b".
func Parse(s string) (Path, error) {
	const op = "path.Parse"
	if s == "" || s[0] != '/' {
		return Path{}, errors.E(op, s, errors.InvalidPath, errors.Str("path must be absolute"))
	}
	if strings.ContainsRune(s, ':') {
		return Path{}, errors.E(op, s, errors.InvalidPath, errors.Str("path must not contain ':'"))
	}
	clean := gopath.Clean(s)
	if clean == "/" {
		return Path{}, nil
	}
	parts := strings.Split(strings.TrimPrefix(clean, "/"), "/")
	elems := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		elems = append(elems, p)
	}
	return Path{elems: elems}, nil
}

// Append returns the path formed by appending a single component to base.
// It fails with InvalidComponent if component is empty or contains '/' or
// ':'.
func Append(base Path, component string) (Path, error) {
	const op = "path.Append"
	if component == "" || strings.ContainsAny(component, "/:") {
		return Path{}, errors.E(op, errors.InvalidComponent, errors.Str("bad component "+component))
	}
	elems := make([]string, len(base.elems)+1)
	copy(elems, base.elems)
	elems[len(base.elems)] = component
	return Path{elems: elems}, nil
}

// IsRoot reports whether p is the root path.
func (p Path) IsRoot() bool {
	return len(p.elems) == 0
}

// Parent returns p's parent. It fails with NoParent (reported as
// InvalidState) on the root, which has none.
func (p Path) Parent() (Path, error) {
	const op = "path.Parent"
	if p.IsRoot() {
		return Path{}, errors.E(op, errors.InvalidState, errors.Str("root has no parent"))
	}
	return Path{elems: p.elems[:len(p.elems)-1]}, nil
}

// Last returns p's final component. It fails with InvalidState on the
// root, which has none.
func (p Path) Last() (string, error) {
	const op = "path.Last"
	if p.IsRoot() {
		return "", errors.E(op, errors.InvalidState, errors.Str("root has no last component"))
	}
	return p.elems[len(p.elems)-1], nil
}

// NElem returns the number of components in p.
func (p Path) NElem() int {
	return len(p.elems)
}

// Elem returns the nth component of p, counting from the root (element 0).
// It panics if n is out of range; callers should guard with NElem.
func (p Path) Elem(n int) string {
	return p.elems[n]
}

// Iterate returns the sequence of ancestor paths from the root down to and
// including p, in order. The returned slice is a fresh copy each call, so
// it is safe for the caller to retain or mutate.
func (p Path) Iterate() []Path {
	out := make([]Path, len(p.elems)+1)
	out[0] = Root()
	cur := Root()
	for i, e := range p.elems {
		cur = Path{elems: append(append([]string{}, cur.elems...), e)}
		out[i+1] = cur
	}
	return out
}

// IsSubpathOf reports whether p is other, or a descendant of other. A path
// is always a subpath of itself.
func (p Path) IsSubpathOf(other Path) bool {
	if len(other.elems) > len(p.elems) {
		return false
	}
	for i, e := range other.elems {
		if p.elems[i] != e {
			return false
		}
	}
	return true
}

// String returns the canonical string form of p, e.g. "/a/b/c" or "/" for
// the root.
func (p Path) String() string {
	if p.IsRoot() {
		return "/"
	}
	return "/" + strings.Join(p.elems, "/")
}

// Equal reports whether p and q name the same path.
func (p Path) Equal(q Path) bool {
	return p.String() == q.String()
}

// Compare returns -1, 0, or 1 according to whether p sorts before, the
// same as, or after q in the canonical lexicographic order over the
// string form. This order is the deadlock-prevention key for any code
// that must lock more than one path: always lock in increasing Compare
// order.
func (p Path) Compare(q Path) int {
	ps, qs := p.String(), q.String()
	switch {
	case ps < qs:
		return -1
	case ps > qs:
		return 1
	default:
		return 0
	}
}
