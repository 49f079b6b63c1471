package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pario-ai/dimsync/pkg/mcp"
)

func newServeCmd(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the host bridge over stdin/stdout (JSON-RPC 2.0)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(gf)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			opts := mcp.Options{
				Remote:     a.client,
				Identities: a.identities,
				Runner:     a.runner,
				Handles:    a.handles,
				Plane:      a.plane(),
				Logger:     a.logger,
				Version:    version,
			}
			if a.journal != nil {
				opts.History = a.journal
			}

			a.logger.Info("host bridge started", "remote", a.client.URL(), "units", string(a.units))
			return mcp.New(opts).Run(cmd.Context(), os.Stdin, os.Stdout)
		},
	}
}
