// Command storage-server runs a storage server: a local-disk data/control
// backend and a gRPC listener. No service is registered on the listener,
// and the server does not register its file list with a naming server.
package main

import (
	"fmt"
	"net"
	"os"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"distfs.io/log"
	"distfs.io/storage/localfs"
)

var (
	grpcAddr string
	dataDir  string
	logLevel string
)

func main() {
	root := &cobra.Command{
		Use:   "storage-server",
		Short: "Run a distfs storage server backed by the local filesystem",
		RunE:  run,
	}
	flags := root.Flags()
	flags.StringVar(&grpcAddr, "grpc-addr", ":10001", "address to serve data/control RPCs on")
	flags.StringVar(&dataDir, "data-dir", "./data", "local directory to store files under")
	flags.StringVar(&logLevel, "log-level", "info", "log level: debug, info, error, disabled")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if err := log.SetLevel(logLevel); err != nil {
		return err
	}

	srv, err := localfs.NewServer(dataDir)
	if err != nil {
		return err
	}
	_ = srv // grpcServer below registers no service, so srv is not reachable over gRPC.

	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return err
	}
	grpcServer := grpc.NewServer()

	log.Info.Printf("serving storage gRPC on %s, data dir %s", grpcAddr, dataDir)
	return grpcServer.Serve(lis)
}
