package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sopforge/core/internal/audit"
)

func newAuditCmd(a *app) *cobra.Command {
	var (
		subject string
		limit   int
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List recorded impact, validation and build runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Audit.DBPath == "" {
				return errors.New("no audit database configured: pass --audit-db or set audit.db_path")
			}
			log, err := audit.Open(a.cfg.Audit.DBPath)
			if err != nil {
				return err
			}
			defer log.Close()

			var events []audit.Event
			if subject != "" {
				events, err = log.ForSubject(cmd.Context(), subject, limit)
			} else {
				events, err = log.Recent(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}

			if asJSON {
				return a.writeJSON(events)
			}
			if len(events) == 0 {
				fmt.Fprintln(a.out, mutedStyle.Render("No recorded runs"))
				return nil
			}
			for _, e := range events {
				fmt.Fprintf(a.out, "%s  %-8s  %-24s  %s %s\n",
					e.CreatedAt.Local().Format("2006-01-02 15:04:05"), e.Kind, e.Subject,
					headerStyle.Render(e.Outcome), mutedStyle.Render(e.Details))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "Only runs for this node id or graph path")
	cmd.Flags().IntVar(&limit, "limit", audit.DefaultLimit, "Maximum number of runs to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
