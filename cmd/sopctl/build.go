package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sopforge/core/internal/audit"
	"github.com/sopforge/core/internal/build"
)

func newBuildCmd(a *app) *cobra.Command {
	var (
		outDir   string
		journeys bool
	)
	cmd := &cobra.Command{
		Use:   "build [sop-id...]",
		Short: "Assemble SOP documents from the graph and component library",
		Long: `Render each SOP as markdown with its dependencies, expanded components and
related documents. Without ids every SOP is built. Output goes to
<out>/sops/<id>.md with a build-report.json next to it. With --journeys every
customer journey is also rendered into <out>/journeys/<id>.md with a
journey-report.json.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.load()
			if err != nil {
				return err
			}
			snap := s.Snapshot()
			if outDir == "" {
				outDir = a.cfg.Build.OutputDir
			}

			builder := build.NewBuilder(snap.Graph, snap.Library, a.logger)
			report, err := builder.WriteAll(outDir, args...)
			if err != nil {
				return lookupError(err)
			}
			printResults(a, report)
			fmt.Fprintf(a.out, "\nBuilt %d of %d SOPs into %s\n", report.Successful, report.TotalSOPs, outDir)

			if journeys {
				jr, err := builder.WriteJourneys(outDir)
				if err != nil {
					return err
				}
				printResults(a, jr)
				fmt.Fprintf(a.out, "Built %d of %d journeys into %s\n", jr.Successful, jr.TotalSOPs, outDir)
				report.Failed += jr.Failed
			}

			outcome := "success"
			if report.Failed > 0 {
				outcome = "partial"
			}
			a.record(cmd.Context(), audit.Event{
				Kind:    audit.KindBuild,
				Subject: snap.Path,
				Outcome: outcome,
				Score:   report.Failed,
				Details: fmt.Sprintf("built=%d out=%s", report.Successful, outDir),
			})

			if report.Failed > 0 {
				return &findingsError{msg: fmt.Sprintf("%d documents failed to build", report.Failed)}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (default from config)")
	cmd.Flags().BoolVar(&journeys, "journeys", false, "Also render every customer journey")
	return cmd
}

func printResults(a *app, report *build.Report) {
	for _, r := range report.Results {
		if r.Status == build.StatusSuccess {
			fmt.Fprintln(a.out, successStyle.Render("  ✓ "+r.SOPID)+mutedStyle.Render(" → "+r.Path))
			for _, w := range r.Doc.Warnings {
				fmt.Fprintln(a.out, warningStyle.Render("      ⚠ "+w))
			}
		} else {
			fmt.Fprintln(a.out, errorStyle.Render(fmt.Sprintf("  ✗ %s: %s", r.SOPID, r.Error)))
		}
	}
}
