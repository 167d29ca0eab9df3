package localfs

import (
	"sync"

	"distfs.io/distfs"
	"distfs.io/errors"
)

// InProcessDialer resolves distfs.StorageServerHandle values whose
// endpoints use distfs.InProcess transport to Server instances registered
// directly in this process. It satisfies both naming.Dialer and
// replication.Dialer, and is the dialer cmd/naming-server uses in place
// of a real gRPC round trip.
type InProcessDialer struct {
	mu      sync.RWMutex
	servers map[distfs.Endpoint]*Server
}

// NewInProcessDialer returns an empty dialer.
func NewInProcessDialer() *InProcessDialer {
	return &InProcessDialer{servers: make(map[distfs.Endpoint]*Server)}
}

// Register associates endpoint with srv so future Control/Data calls
// naming that endpoint resolve to it.
func (d *InProcessDialer) Register(endpoint distfs.Endpoint, srv *Server) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.servers[endpoint] = srv
}

func (d *InProcessDialer) lookup(endpoint distfs.Endpoint) (*Server, error) {
	const op = "localfs.InProcessDialer"
	d.mu.RLock()
	defer d.mu.RUnlock()
	srv, ok := d.servers[endpoint]
	if !ok {
		return nil, errors.E(op, errors.RemoteFailure, errors.Str("no in-process server registered for endpoint"))
	}
	return srv, nil
}

// Control implements naming.Dialer and replication.Dialer.
func (d *InProcessDialer) Control(h distfs.StorageServerHandle) (distfs.ControlServer, error) {
	return d.lookup(h.Control)
}

// Data implements naming.Dialer and replication.Dialer.
func (d *InProcessDialer) Data(h distfs.StorageServerHandle) (distfs.DataServer, error) {
	return d.lookup(h.Data)
}
