// Package localfs is a minimal, local-disk implementation of the storage
// server's consumed data/control interfaces (spec.md §6). It exists to
// make distfs.io/naming's registration and replication flows runnable and
// testable end to end; it is intentionally small and keeps no cache, no
// partial-write recovery, and no concurrency control beyond the host
// filesystem's own.
package localfs

import (
	"io"
	"os"
	"path/filepath"

	"distfs.io/distfs"
	"distfs.io/errors"
	"distfs.io/path"
)

// copyChunkSize matches the reference implementation's 1024-byte Copy
// streaming chunk (spec.md §6).
const copyChunkSize = 1024

// Server stores every file under a single root directory on the local
// filesystem, named by the Upspin-style path string itself (with its
// leading "/" stripped), and implements both distfs.DataServer and
// distfs.ControlServer.
type Server struct {
	root string
}

var (
	_ distfs.DataServer    = (*Server)(nil)
	_ distfs.ControlServer = (*Server)(nil)
)

// NewServer returns a Server rooted at dir, creating it if necessary.
func NewServer(dir string) (*Server, error) {
	const op = "localfs.NewServer"
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.E(op, errors.RemoteFailure, err)
	}
	return &Server{root: dir}, nil
}

func (s *Server) localPath(p path.Path) string {
	return filepath.Join(s.root, filepath.FromSlash(p.String()))
}

// Size implements distfs.DataServer.
func (s *Server) Size(p path.Path) (int64, error) {
	const op = "localfs.Size"
	fi, err := os.Stat(s.localPath(p))
	if err != nil {
		return 0, errors.E(op, p.String(), errors.NotFound, err)
	}
	return fi.Size(), nil
}

// Read implements distfs.DataServer. offset+length must not exceed the
// file's size.
func (s *Server) Read(p path.Path, offset, length int64) ([]byte, error) {
	const op = "localfs.Read"
	f, err := os.Open(s.localPath(p))
	if err != nil {
		return nil, errors.E(op, p.String(), errors.NotFound, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, errors.E(op, p.String(), errors.RemoteFailure, err)
	}
	if offset < 0 || offset+length > fi.Size() {
		return nil, errors.E(op, p.String(), errors.IndexOutOfBounds)
	}
	buf := make([]byte, length)
	if _, err := f.ReadAt(buf, offset); err != nil && err != io.EOF {
		return nil, errors.E(op, p.String(), errors.RemoteFailure, err)
	}
	return buf, nil
}

// Write implements distfs.DataServer, extending the file as needed.
func (s *Server) Write(p path.Path, offset int64, data []byte) error {
	const op = "localfs.Write"
	f, err := os.OpenFile(s.localPath(p), os.O_RDWR, 0o644)
	if err != nil {
		return errors.E(op, p.String(), errors.NotFound, err)
	}
	defer f.Close()
	if _, err := f.WriteAt(data, offset); err != nil {
		return errors.E(op, p.String(), errors.RemoteFailure, err)
	}
	return nil
}

// Create implements distfs.ControlServer. It reports created=false, not
// an error, if the file already existed, matching spec.md §6/§7.
func (s *Server) Create(p path.Path) (bool, error) {
	const op = "localfs.Create"
	local := s.localPath(p)
	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return false, errors.E(op, p.String(), errors.RemoteFailure, err)
	}
	f, err := os.OpenFile(local, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		return false, errors.E(op, p.String(), errors.RemoteFailure, err)
	}
	return true, f.Close()
}

// Delete implements distfs.ControlServer.
func (s *Server) Delete(p path.Path) (bool, error) {
	const op = "localfs.Delete"
	if err := os.Remove(s.localPath(p)); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.E(op, p.String(), errors.RemoteFailure, err)
	}
	return true, nil
}

// Copy implements distfs.ControlServer, streaming src's bytes in
// copyChunkSize chunks and replacing any pre-existing local file.
func (s *Server) Copy(p path.Path, src distfs.DataServer) (bool, error) {
	const op = "localfs.Copy"
	size, err := src.Size(p)
	if err != nil {
		return false, errors.E(op, p.String(), errors.RemoteFailure, err)
	}

	local := s.localPath(p)
	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return false, errors.E(op, p.String(), errors.RemoteFailure, err)
	}
	f, err := os.OpenFile(local, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return false, errors.E(op, p.String(), errors.RemoteFailure, err)
	}
	defer f.Close()

	for offset := int64(0); offset < size; offset += copyChunkSize {
		n := int64(copyChunkSize)
		if offset+n > size {
			n = size - offset
		}
		chunk, err := src.Read(p, offset, n)
		if err != nil {
			return false, errors.E(op, p.String(), errors.RemoteFailure, err)
		}
		if _, err := f.WriteAt(chunk, offset); err != nil {
			return false, errors.E(op, p.String(), errors.RemoteFailure, err)
		}
	}
	return true, nil
}
