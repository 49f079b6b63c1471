package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newPingCmd(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the remote add-on service is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(gf)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			ctx := cmd.Context()
			msg, res := a.client.Ping(ctx)
			if !res.OK() {
				return fmt.Errorf("ping %s: %s", a.client.URL(), res.Describe())
			}
			fmt.Printf("%s: %s\n", a.client.URL(), msg)

			if port, res := a.client.GetPort(ctx); res.OK() {
				fmt.Printf("Service port: %d\n", port)
			}
			return nil
		},
	}
}

func newDimensionsCmd(gf *globalFlags) *cobra.Command {
	var layer string

	cmd := &cobra.Command{
		Use:   "dimensions",
		Short: "List the linear dimensions in the remote document",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(gf)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			dims, res := a.client.GetDimensions(cmd.Context(), layer)
			if !res.OK() {
				return fmt.Errorf("get dimensions: %s", res.Describe())
			}
			if len(dims) == 0 {
				fmt.Println("No dimensions found.")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "GUID\tTYPE\tLAYER\tTEXT\tPOINT 1\tPOINT 2")
			for _, d := range dims {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					d.GUID, d.Type, d.Layer, d.Text, d.Points[0], d.Points[1])
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&layer, "layer", "", "only list dimensions on this layer")
	return cmd
}
