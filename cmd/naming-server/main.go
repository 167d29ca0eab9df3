// Command naming-server runs the naming server: the path namespace, the
// lock manager, the replication coordinator, and the registration
// reconciler, plus a gRPC listener and a Prometheus /metrics endpoint.
// No gRPC service is registered on the listener.
package main

import (
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"distfs.io/distfs"
	"distfs.io/log"
	"distfs.io/metric"
	"distfs.io/naming"
	"distfs.io/rpc"
	"distfs.io/storage/localfs"
)

var (
	grpcAddr       string
	metricsAddr    string
	logLevel       string
	replicationMin int
	remoteStorage  []string
)

func main() {
	root := &cobra.Command{
		Use:   "naming-server",
		Short: "Run the distfs naming server",
		RunE:  run,
	}
	flags := root.Flags()
	flags.StringVar(&grpcAddr, "grpc-addr", ":10000", "address to serve the naming gRPC service on")
	flags.StringVar(&metricsAddr, "metrics-addr", ":9100", "address to serve Prometheus metrics on")
	flags.StringVar(&logLevel, "log-level", "info", "log level: debug, info, error, disabled")
	flags.IntVar(&replicationMin, "replication-threshold", 0, "shared-lock count that triggers replicate-on-read (0 uses the default)")
	flags.StringSliceVar(&remoteStorage, "remote-storage-addr", nil, "gRPC address of a remote storage server to warm a connection to at startup; repeatable")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if err := log.SetLevel(logLevel); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	metrics := metric.NewRegistry(reg)

	// A generated gRPC client that turns a *grpc.ClientConn into a
	// distfs.DataServer/distfs.ControlServer is a collaborator's concern
	// (spec.md §1, out of scope); the in-process dialer below stands in
	// for it so the naming server is runnable end to end on its own.
	dialer := localfs.NewInProcessDialer()
	coordinator := naming.New(dialer, metrics, replicationMin)
	_ = coordinator // srv below registers no service, so coordinator is not reachable over gRPC.

	conns := rpc.NewConnCache()
	defer conns.Close()
	for _, addr := range remoteStorage {
		endpoint := distfs.Endpoint{Transport: distfs.Remote, NetAddr: distfs.NetAddr(addr)}
		if _, err := conns.Get(endpoint); err != nil {
			log.Error.Printf("dialing remote storage server %s: %v", addr, err)
			continue
		}
		log.Info.Printf("warmed connection to remote storage server %s", addr)
	}

	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return err
	}
	srv := grpc.NewServer()

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		log.Info.Printf("serving metrics on %s", metricsAddr)
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			log.Error.Printf("metrics server stopped: %v", err)
		}
	}()

	log.Info.Printf("serving naming gRPC on %s", grpcAddr)
	return srv.Serve(lis)
}
