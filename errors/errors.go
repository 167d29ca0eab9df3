// Package errors defines the error handling used across the naming server
// and its collaborating packages.
package errors

import (
	"bytes"
	"fmt"
	"runtime"

	"distfs.io/log"
)

// Error is the type that implements the error interface. It contains a
// number of fields, each of a different type. An Error value may leave
// some fields unset.
type Error struct {
	// Path is the path of the item being accessed, if any.
	Path string
	// Op is the operation being performed, usually "pkg.Func".
	Op string
	// Kind classifies the error for callers that must act differently
	// depending on it (NotFound vs. NoStorageAvailable, etc.).
	Kind Kind
	// Err is the underlying error that triggered this one, if any.
	Err error
}

var _ error = (*Error)(nil)

// Kind defines the kind of error, matching the vocabulary of spec.md §7.
type Kind uint8

// The error kinds.
const (
	Other             Kind = iota // Unclassified; not printed in the message.
	NullArgument                 // A required argument was nil or empty.
	InvalidComponent              // A path component was empty or contained '/' or ':'.
	InvalidPath                  // A path string failed to parse.
	IndexOutOfBounds             // A storage read's offset/length exceeded the file size.
	NotFound                     // The path is unknown to the namespace.
	NotADirectory                // The path is a file where a directory was required.
	NotAFile                     // The path is a directory where a file was required.
	InvalidState                 // E.g. unlock of a path with no active lock.
	NoStorageAvailable           // The registry has no storage servers.
	Duplicate                    // Registration of an already-known storage server.
	RemoteFailure                // A transport-level failure on an RPC.
)

func (k Kind) String() string {
	switch k {
	case NullArgument:
		return "missing argument"
	case InvalidComponent:
		return "invalid path component"
	case InvalidPath:
		return "invalid path"
	case IndexOutOfBounds:
		return "index out of bounds"
	case NotFound:
		return "not found"
	case NotADirectory:
		return "not a directory"
	case NotAFile:
		return "not a file"
	case InvalidState:
		return "invalid state"
	case NoStorageAvailable:
		return "no storage available"
	case Duplicate:
		return "already exists"
	case RemoteFailure:
		return "remote failure"
	case Other:
		return "other error"
	}
	return "unknown error kind"
}

// E builds an error value from its arguments. The type of each argument
// determines its meaning. Only one argument of each type may be present;
// if more than one is given, the last one wins.
//
// The types are:
//
//	string
//		The first string is the operation ("pkg.Func"); any subsequent
//		string is the path (so callers may write E(op, path, err)
//		without a dedicated path type).
//	Kind
//		The classification of the error.
//	error
//		The underlying error that triggered this one. If it is itself
//		an *Error, its Kind is inherited when this call sets none.
func E(args ...interface{}) error {
	if len(args) == 0 {
		return nil
	}
	e := &Error{}
	for _, arg := range args {
		switch arg := arg.(type) {
		case string:
			if e.Op == "" {
				e.Op = arg
			} else {
				e.Path = arg
			}
		case Kind:
			e.Kind = arg
		case error:
			e.Err = arg
		default:
			_, file, line, _ := runtime.Caller(1)
			log.Error.Printf("errors.E: bad call from %s:%d: %v", file, line, args)
			return fmt.Errorf("unknown type %T, value %v in error call", arg, arg)
		}
	}
	if e.Kind == Other {
		if prev, ok := e.Err.(*Error); ok {
			e.Kind = prev.Kind
		}
	}
	return e
}

func pad(b *bytes.Buffer, str string) {
	if b.Len() == 0 {
		return
	}
	b.WriteString(str)
}

func (e *Error) Error() string {
	b := new(bytes.Buffer)
	if e.Op != "" {
		pad(b, ": ")
		b.WriteString(e.Op)
	}
	if e.Path != "" {
		pad(b, ": ")
		b.WriteString(e.Path)
	}
	if e.Kind != Other {
		pad(b, ": ")
		b.WriteString(e.Kind.String())
	}
	if e.Err != nil {
		if prevErr, ok := e.Err.(*Error); ok {
			if prevErr.Kind == e.Kind {
				// Avoid repeating the same kind twice.
				prevCopy := *prevErr
				prevCopy.Kind = Other
				pad(b, ": ")
				b.WriteString(prevCopy.Error())
			} else {
				pad(b, ": ")
				b.WriteString(e.Err.Error())
			}
		} else {
			pad(b, ": ")
			b.WriteString(e.Err.Error())
		}
	}
	if b.Len() == 0 {
		return "no error"
	}
	return b.String()[2:] // Drop the leading ": ".
}

// Unwrap returns the underlying error, for use with errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether err is, or wraps, an *Error of the given Kind.
func Is(kind Kind, err error) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	if e.Kind != Other {
		return e.Kind == kind
	}
	if e.Err != nil {
		return Is(kind, e.Err)
	}
	return false
}

// Match reports whether err matches the template error, which must be an
// *Error. Only the fields set on the template are compared.
func Match(template, err error) bool {
	t, ok := template.(*Error)
	if !ok {
		return false
	}
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	if t.Path != "" && t.Path != e.Path {
		return false
	}
	if t.Op != "" && t.Op != e.Op {
		return false
	}
	if t.Kind != Other && t.Kind != e.Kind {
		return false
	}
	if t.Err != nil {
		if e.Err == nil || t.Err.Error() != e.Err.Error() {
			return false
		}
	}
	return true
}

// Str returns an error that formats as the given text. It is intended for
// use as the innermost error in a call to E, analogous to errors.New but
// named to fit E's argument-type switch.
func Str(text string) error {
	return &errorString{text}
}

type errorString struct{ s string }

func (e *errorString) Error() string { return e.s }
