package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/sopforge/core/internal/compliance"
)

func newComplianceCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "compliance",
		Short: "Report review status and framework coverage of SOPs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.load()
			if err != nil {
				return err
			}
			report := compliance.Generate(s.Graph(), time.Now())
			if asJSON {
				return a.writeJSON(report)
			}
			printCompliance(a.out, report)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func printCompliance(w io.Writer, r *compliance.Report) {
	fmt.Fprintln(w, titleStyle.Render("Compliance Report"))
	fmt.Fprintf(w, "Total SOPs: %d\n\n", r.TotalSOPs)

	fmt.Fprintln(w, headerStyle.Render("Frameworks"))
	for _, fc := range r.Frameworks() {
		fmt.Fprintf(w, "  %s: %d SOPs\n", fc.Name, fc.Count)
	}
	if c := r.Coverage; c.TotalFrameworks > 0 {
		fmt.Fprintf(w, "  Average SOPs per framework: %.1f\n", c.AverageSOPsPerFramework)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, headerStyle.Render("Reviews"))
	if len(r.Overdue) == 0 && len(r.DueSoon) == 0 && len(r.Upcoming) == 0 {
		fmt.Fprintln(w, successStyle.Render("  ✓ No reviews due in the next 90 days"))
	}
	for _, e := range r.Overdue {
		fmt.Fprintln(w, errorStyle.Render(fmt.Sprintf("  ✗ %s overdue by %d days (%s)", e.ID, e.DaysOverdue, e.NextReview)))
	}
	for _, e := range r.DueSoon {
		fmt.Fprintln(w, warningStyle.Render(fmt.Sprintf("  ⚠ %s due in %d days (%s)", e.ID, e.DaysUntilReview, e.NextReview)))
	}
	for _, e := range r.Upcoming {
		fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("  • %s due in %d days (%s)", e.ID, e.DaysUntilReview, e.NextReview)))
	}
	for _, warn := range r.Warnings {
		fmt.Fprintln(w, warningStyle.Render("  ⚠ "+warn))
	}
}
