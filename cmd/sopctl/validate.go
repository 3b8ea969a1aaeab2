package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sopforge/core/internal/audit"
	"github.com/sopforge/core/internal/validate"
)

func newValidateCmd(a *app) *cobra.Command {
	var (
		strict bool
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the graph and component library",
		Long: `Check the graph for structural problems: missing fields, dangling
references, containment of the wrong node types, cycles, SLA mismatches,
versions and component metadata. Exits 1 when any error is found; --strict
counts warnings as errors.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.load()
			if err != nil {
				return err
			}
			snap := s.Snapshot()
			res := validate.New(strict, snap.Library).Validate(snap.Graph)

			if asJSON {
				if err := a.writeJSON(res); err != nil {
					return err
				}
			} else {
				printValidation(a, res)
			}

			a.record(cmd.Context(), audit.Event{
				Kind:    audit.KindValidate,
				Subject: snap.Path,
				Outcome: res.Status,
				Score:   res.Summary.Errors,
				Details: fmt.Sprintf("strict=%t warnings=%d", strict, res.Summary.Warnings),
			})

			if !res.Valid() {
				return &findingsError{msg: fmt.Sprintf("validation failed with %d errors", res.Summary.Errors)}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Treat warnings as errors")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func printValidation(a *app, res *validate.Result) {
	w := a.out
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Graph Validation (%s)", res.Flavor)))
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("%d nodes, %d edges, %d components",
		res.Summary.TotalNodes, res.Summary.TotalEdges, res.Summary.TotalComponents)))
	fmt.Fprintln(w)

	for _, is := range res.Errors {
		fmt.Fprintln(w, errorStyle.Render("  ✗ "+is.Message))
	}
	for _, is := range res.Warnings {
		fmt.Fprintln(w, warningStyle.Render("  ⚠ "+is.Message))
	}
	for _, is := range res.Info {
		fmt.Fprintln(w, mutedStyle.Render("  ℹ "+is.Message))
	}
	fmt.Fprintln(w)

	summary := fmt.Sprintf("%s: %d errors, %d warnings", res.Status, res.Summary.Errors, res.Summary.Warnings)
	if res.Valid() {
		fmt.Fprintln(w, successStyle.Render(summary))
	} else {
		fmt.Fprintln(w, errorStyle.Render(summary))
	}
}
