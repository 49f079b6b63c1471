package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pario-ai/dimsync/pkg/generator"
	"github.com/pario-ai/dimsync/pkg/input"
	"github.com/pario-ai/dimsync/pkg/measure"
	"github.com/pario-ai/dimsync/pkg/models"
)

func newPairsCmd(gf *globalFlags) *cobra.Command {
	var (
		inputPath string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "pairs",
		Short: "Generate point pairs from an input file without contacting the service",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := input.Load(inputPath)
			if err != nil {
				return err
			}
			a, err := openApp(gf)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			res, err := doc.Generate(a.generator(doc.Instance))
			if err != nil {
				return err
			}
			printWarnings(res)
			if asJSON {
				return writeJSON(res.Pairs)
			}
			return printPairs(res.Pairs, a.units)
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "path to the geometry input file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print pairs as JSON")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func newSyncCmd(gf *globalFlags) *cobra.Command {
	var (
		inputPath string
		force     bool
		passes    int
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize markers and linear dimensions for the pairs of an input file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if passes < 1 {
				return fmt.Errorf("--passes must be at least 1")
			}
			doc, err := input.Load(inputPath)
			if err != nil {
				return err
			}
			a, err := openApp(gf)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			var opts []measure.RunOption
			if doc.Offset != nil {
				opts = append(opts, measure.WithOffset(*doc.Offset))
			}
			if force {
				a.runner.Trigger().Raise()
			}

			gen := a.generator(doc.Instance)
			failed := 0
			for pass := 1; pass <= passes; pass++ {
				// Each pass re-evaluates the generator the way a host does on recompute.
				res, err := doc.Generate(gen)
				if err != nil {
					return err
				}
				if pass == 1 {
					printWarnings(res)
				}
				rep := a.runner.Run(cmd.Context(), res.Pairs, opts...)
				failed = len(rep.Outcomes) - rep.Succeeded()

				if asJSON {
					if err := writeJSON(rep.Outcomes); err != nil {
						return err
					}
					continue
				}
				if passes > 1 {
					fmt.Printf("Pass %d\n", pass)
				}
				if err := printReport(rep); err != nil {
					return err
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d pair(s) failed to synchronize", failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "path to the geometry input file")
	cmd.Flags().BoolVar(&force, "force", false, "update every marker on the first pass even when unchanged")
	cmd.Flags().IntVar(&passes, "passes", 1, "number of passes to run")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print pass outcomes as JSON")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func printWarnings(res *generator.Result) {
	for _, w := range res.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printPairs(pairs []*models.PointPair, units models.UnitSystem) error {
	if len(pairs) == 0 {
		fmt.Println("No point pairs generated.")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tPOINT 1\tPOINT 2\tLENGTH\tIDENTITY 1\tIDENTITY 2")
	for i, pp := range pairs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			i, pp.Point1, pp.Point2, units.FormatLength(pp.Distance()), pp.Identity1, pp.Identity2)
	}
	return w.Flush()
}

func printReport(rep *measure.Report) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tOK\tMARKER 1\tMARKER 2\tACTION 1\tACTION 2\tMESSAGE")
	for _, o := range rep.Outcomes {
		var m1, m2 string
		if o.Pair != nil {
			m1, m2 = o.Pair.Marker1, o.Pair.Marker2
		}
		fmt.Fprintf(w, "%d\t%t\t%s\t%s\t%s\t%s\t%s\n",
			o.Index, o.Success, orDash(m1), orDash(m2), o.Sync.Point1.Action, o.Sync.Point2.Action, o.Message)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	forced := ""
	if rep.Forced {
		forced = " (forced)"
	}
	fmt.Printf("%d/%d pairs synchronized%s\n", rep.Succeeded(), len(rep.Outcomes), forced)
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
