package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var version = "dev"

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	host       string
	port       int
	timeout    time.Duration
}

func main() {
	var gf globalFlags

	root := &cobra.Command{
		Use:           "dimsync",
		Short:         "dimsync keeps generated point pairs measured in a remote design document",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&gf.configPath, "config", "c", "", "path to dimsync config file")
	root.PersistentFlags().StringVar(&gf.host, "host", "", "remote service host (overrides config)")
	root.PersistentFlags().IntVar(&gf.port, "port", 0, "remote service port (overrides config)")
	root.PersistentFlags().DurationVar(&gf.timeout, "timeout", 0, "remote request timeout (overrides config)")

	root.AddCommand(
		newPingCmd(&gf),
		newPairsCmd(&gf),
		newSyncCmd(&gf),
		newDimensionsCmd(&gf),
		newServeCmd(&gf),
		newHistoryCmd(&gf),
		newCacheCmd(&gf),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
