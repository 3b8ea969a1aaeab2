package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/sopforge/core/internal/models"
	"github.com/sopforge/core/internal/parser"
)

func newConvertCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "convert [input] [output]",
		Short: "Rewrite a legacy array-format graph keyed by node id",
		Long: `Convert a graph whose nodes are a JSON array into the object format keyed
by node id. The input defaults to the configured graph and the output to the
input. A graph that is already in object format is left untouched.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := a.cfg.Graph.Path
			if len(args) > 0 {
				in = args[0]
			}
			out := in
			if len(args) > 1 {
				out = args[1]
			}

			data, err := os.ReadFile(in)
			if err != nil {
				return fmt.Errorf("read graph %s: %w", in, err)
			}
			g, report, err := parser.Convert(data)
			if err != nil {
				return err
			}
			if report.AlreadyObject() {
				fmt.Fprintln(a.out, successStyle.Render("✓ Graph is already in object format. No conversion needed."))
				return nil
			}

			encoded, err := json.MarshalIndent(g, "", "  ")
			if err != nil {
				return fmt.Errorf("encode graph: %w", err)
			}
			if err := os.WriteFile(out, encoded, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}

			fmt.Fprintln(a.out, successStyle.Render(fmt.Sprintf("✓ Converted %d nodes → %s", report.Converted, out)))
			if report.Skipped > 0 {
				fmt.Fprintln(a.out, warningStyle.Render(fmt.Sprintf("⚠ Skipped %d nodes without an id", report.Skipped)))
			}
			types := make([]models.NodeType, 0, len(report.NodesByType))
			for t := range report.NodesByType {
				types = append(types, t)
			}
			sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
			for _, t := range types {
				fmt.Fprintf(a.out, "  %s: %d\n", t, report.NodesByType[t])
			}
			return nil
		},
	}
}
