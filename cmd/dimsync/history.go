package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pario-ai/dimsync/pkg/audit"
	"github.com/pario-ai/dimsync/pkg/models"
)

func newHistoryCmd(gf *globalFlags) *cobra.Command {
	var (
		command string
		outcome string
		since   string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Search the remote command journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, cleanup, err := openJournal(gf)
			if err != nil {
				return err
			}
			defer cleanup()

			opts := models.AuditQueryOpts{
				Command: command,
				Outcome: outcome,
				Limit:   limit,
			}
			if since != "" {
				t, err := time.Parse("2006-01-02", since)
				if err != nil {
					return fmt.Errorf("invalid --since date (use YYYY-MM-DD): %w", err)
				}
				opts.Since = t
			}

			entries, err := l.Query(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No journal entries found.")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTIME\tCOMMAND\tOUTCOME\tLATENCY\tMESSAGE")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%dms\t%s\n",
					e.ID, e.CreatedAt.Format("2006-01-02T15:04:05"), e.Command, e.Outcome, e.LatencyMs, e.Message)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&command, "command", "", "filter by command name")
	cmd.Flags().StringVar(&outcome, "outcome", "", "filter by outcome (ok, transport, envelope, command)")
	cmd.Flags().StringVar(&since, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", 50, "max entries to return")

	cmd.AddCommand(
		newHistoryShowCmd(gf),
		newHistoryStatsCmd(gf),
		newHistoryCleanupCmd(gf),
	)
	return cmd
}

func newHistoryShowCmd(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show a single journal entry with its bodies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, cleanup, err := openJournal(gf)
			if err != nil {
				return err
			}
			defer cleanup()

			entries, err := l.Query(cmd.Context(), models.AuditQueryOpts{ID: args[0], Limit: 1})
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No entry found for that ID.")
				return nil
			}

			e := entries[0]
			fmt.Printf("ID:         %s\n", e.ID)
			fmt.Printf("Namespace:  %s\n", e.Namespace)
			fmt.Printf("Command:    %s\n", e.Command)
			fmt.Printf("Outcome:    %s\n", e.Outcome)
			if e.Message != "" {
				fmt.Printf("Message:    %s\n", e.Message)
			}
			fmt.Printf("Latency:    %dms\n", e.LatencyMs)
			fmt.Printf("Time:       %s\n", e.CreatedAt.Format(time.RFC3339))
			if e.RequestBody != "" {
				fmt.Printf("\n--- Request Body ---\n%s\n", e.RequestBody)
			}
			if e.ResponseBody != "" {
				fmt.Printf("\n--- Response Body ---\n%s\n", e.ResponseBody)
			}
			return nil
		},
	}
}

func newHistoryStatsCmd(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show journal counts by command and outcome",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, cleanup, err := openJournal(gf)
			if err != nil {
				return err
			}
			defer cleanup()

			stats, err := l.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if len(stats) == 0 {
				fmt.Println("No journal entries found.")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "COMMAND\tOUTCOME\tCOUNT")
			for _, s := range stats {
				fmt.Fprintf(w, "%s\t%s\t%d\n", s.Command, s.Outcome, s.Count)
			}
			return w.Flush()
		},
	}
}

func newHistoryCleanupCmd(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete journal entries older than the retention period",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, cleanup, err := openJournal(gf)
			if err != nil {
				return err
			}
			defer cleanup()

			deleted, err := l.Cleanup(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %d journal entries.\n", deleted)
			return nil
		},
	}
}

// openJournal opens the configured journal database directly, without
// wiring a client.
func openJournal(gf *globalFlags) (*audit.Logger, func(), error) {
	cfg, err := loadConfig(gf)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Audit.DBPath == "" || cfg.Audit.DBPath == ":memory:" {
		return nil, nil, fmt.Errorf("audit.db_path must name a file to read the journal back")
	}
	l, err := audit.New(cfg.Audit)
	if err != nil {
		return nil, nil, fmt.Errorf("open command journal: %w", err)
	}
	return l, func() { _ = l.Close() }, nil
}
