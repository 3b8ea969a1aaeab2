package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sopforge/core/internal/graph"
)

func newCyclesCmd(a *app) *cobra.Command {
	var (
		containment bool
		asJSON      bool
	)
	cmd := &cobra.Command{
		Use:   "cycles",
		Short: "Report circular dependencies",
		Long: `Report every cycle in the graph's edges. With --containment the module,
phase and journey child lists are checked too. Exits 1 when a cycle is found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.load()
			if err != nil {
				return err
			}
			g := s.Graph()

			cycles := graph.DetectCycles(g)
			var contained []graph.Cycle
			if containment {
				contained = graph.DetectContainmentCycles(g)
			}
			found := len(cycles) + len(contained)

			if asJSON {
				if err := a.writeJSON(map[string]any{
					"has_cycles":         found > 0,
					"cycles":             nonNilCycles(cycles),
					"containment_cycles": nonNilCycles(contained),
				}); err != nil {
					return err
				}
			} else {
				printCycles(a, "Circular dependencies", cycles)
				if containment {
					printCycles(a, "Circular containment", contained)
				}
			}

			if found > 0 {
				return &findingsError{msg: fmt.Sprintf("%d circular dependencies found", found)}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&containment, "containment", false, "Also check containment lists")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func printCycles(a *app, title string, cycles []graph.Cycle) {
	fmt.Fprintln(a.out, headerStyle.Render(title))
	if len(cycles) == 0 {
		fmt.Fprintln(a.out, successStyle.Render("  ✓ No circular dependencies found"))
		return
	}
	for i, c := range cycles {
		fmt.Fprintln(a.out, errorStyle.Render(fmt.Sprintf("  %d. %s", i+1, c)))
	}
}

func nonNilCycles(c []graph.Cycle) []graph.Cycle {
	if c == nil {
		return []graph.Cycle{}
	}
	return c
}
