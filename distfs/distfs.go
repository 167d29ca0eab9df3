// Package distfs defines the core value types and RPC surfaces shared by
// the naming server and storage servers: addresses, the storage-server
// handle pair, and the exposed/consumed interfaces of spec.md §6.
//
// The interfaces here describe capability, not transport. Marshalling,
// skeletons, and stubs are a collaborator's concern (see distfs.io/rpc);
// nothing in this package depends on a particular wire format.
package distfs

import "distfs.io/path"

// NetAddr is the network address of a service, interpreted by a Dialer to
// connect to it. It is opaque to this package; distfs.io/rpc knows how to
// turn one into a live connection.
type NetAddr string

// Transport identifies how a NetAddr is to be interpreted.
type Transport uint8

// The known transports.
const (
	// Unassigned is the zero value; a connection to it always fails.
	Unassigned Transport = iota
	// InProcess indicates the service lives in the current process,
	// typically used by tests.
	InProcess
	// Remote indicates a gRPC connection to a remote process.
	Remote
)

// Endpoint identifies one instance of a service.
type Endpoint struct {
	Transport Transport
	NetAddr   NetAddr
}

// StorageServerHandle is the pair of remote handles — one for bulk data,
// one for control-plane operations — that together identify a single
// storage server. It is immutable and compares by structural equality of
// the two endpoints, per spec.md §3.
type StorageServerHandle struct {
	Data    Endpoint
	Control Endpoint
}

// Key returns a value suitable for use as a map key, deriving a stable
// identity from the endpoint pair (spec.md §9, "Handle identity").
func (h StorageServerHandle) Key() StorageServerHandle {
	return h
}

// DataServer is the consumed interface for a storage server's bulk-data
// operations (spec.md §6). Offsets are non-negative; for Read,
// offset+length must not exceed the file's size.
type DataServer interface {
	Size(p path.Path) (int64, error)
	Read(p path.Path, offset, length int64) ([]byte, error)
	Write(p path.Path, offset int64, data []byte) error
}

// ControlServer is the consumed interface for a storage server's
// control-plane operations (spec.md §6). Copy is expected to stream bytes
// from src in chunks and replace any pre-existing local file.
type ControlServer interface {
	Create(p path.Path) (bool, error)
	Delete(p path.Path) (bool, error)
	Copy(p path.Path, src DataServer) (bool, error)
}

// Service is the exposed, client-facing RPC surface (spec.md §6).
type Service interface {
	Lock(p path.Path, exclusive bool) error
	Unlock(p path.Path, exclusive bool) error
	IsDirectory(p path.Path) (bool, error)
	List(p path.Path) ([]string, error)
	CreateFile(p path.Path) (bool, error)
	CreateDirectory(p path.Path) (bool, error)
	Delete(p path.Path) (bool, error)
	GetStorage(p path.Path) (Endpoint, error)
}

// Registration is the exposed, storage-facing RPC surface (spec.md §6).
// Register returns the paths the registering storage server must delete
// locally because the namespace already knows them under a different
// handle.
type Registration interface {
	Register(data, control Endpoint, paths []path.Path) ([]path.Path, error)
}
