// Package rpc manages the naming server's outbound gRPC connections to
// storage servers. It is pure transport: dialing and connection caching.
// The actual data/control RPC methods (marshalling, generated stubs) are
// a collaborator per spec.md §1 — this package only ever hands back a
// live *grpc.ClientConn; turning that into a distfs.DataServer or
// distfs.ControlServer is the job of a generated client (out of scope) or,
// for the in-process demo, distfs.io/storage/localfs.
package rpc

import (
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"distfs.io/distfs"
	"distfs.io/errors"
)

// Dial opens a gRPC connection to endpoint.NetAddr. Transport must be distfs.Remote;
// any other value fails with RemoteFailure, mirroring Upspin's Unassigned
// transport that errors on every call.
func Dial(endpoint distfs.Endpoint) (*grpc.ClientConn, error) {
	const op = "rpc.Dial"
	if endpoint.Transport != distfs.Remote {
		return nil, errors.E(op, errors.RemoteFailure, errors.Str("endpoint is not a remote transport"))
	}
	conn, err := grpc.NewClient(string(endpoint.NetAddr), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, errors.E(op, errors.RemoteFailure, err)
	}
	return conn, nil
}

// ConnCache dials each distinct endpoint at most once and reuses the
// connection for subsequent lookups, the same discipline Upspin's
// grpcauth client wrappers use to avoid redialing on every RPC.
type ConnCache struct {
	mu    sync.Mutex
	conns map[distfs.Endpoint]*grpc.ClientConn
}

// NewConnCache returns an empty connection cache.
func NewConnCache() *ConnCache {
	return &ConnCache{conns: make(map[distfs.Endpoint]*grpc.ClientConn)}
}

// Get returns a connection to endpoint, dialing and caching it on first
// use.
func (c *ConnCache) Get(endpoint distfs.Endpoint) (*grpc.ClientConn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if conn, ok := c.conns[endpoint]; ok {
		return conn, nil
	}
	conn, err := Dial(endpoint)
	if err != nil {
		return nil, err
	}
	c.conns[endpoint] = conn
	return conn, nil
}

// Close closes every cached connection.
func (c *ConnCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var firstErr error
	for k, conn := range c.conns {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(c.conns, k)
	}
	return firstErr
}
