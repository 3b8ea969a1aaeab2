package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sopforge/core/internal/visualize"
)

func newVisualizeCmd(a *app) *cobra.Command {
	var (
		format string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "visualize",
		Short: "Render the graph as Mermaid, DOT or text",
		Long: `Render the graph. Output goes to stdout unless --out is given; when --out
is a directory the file is named after the format (sop-graph.mermaid.md,
sop-graph.dot or sop-graph.txt).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := visualize.ParseFormat(format)
			if err != nil {
				return err
			}
			s, err := a.load()
			if err != nil {
				return err
			}
			text, err := visualize.Render(s.Graph(), f)
			if err != nil {
				return err
			}

			if out == "" {
				_, err := fmt.Fprint(a.out, text)
				return err
			}
			if info, err := os.Stat(out); err == nil && info.IsDir() {
				out = filepath.Join(out, f.Filename())
			}
			if err := os.WriteFile(out, []byte(text), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintln(a.out, successStyle.Render("✓ Wrote "+out))
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "mermaid", "Output format: mermaid, dot, ascii")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file or directory")
	return cmd
}
