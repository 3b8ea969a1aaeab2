package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sopforge/core/internal/assistant"
)

func newAssistCmd(a *app) *cobra.Command {
	var (
		req    assistant.Request
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "assist <question...>",
		Short: "Ask the demo SOP assistant a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Query = strings.Join(args, " ")
			resp, err := assistant.New(a.logger).Query(cmd.Context(), req)
			if err != nil {
				return err
			}
			if asJSON {
				return a.writeJSON(resp)
			}

			fmt.Fprintln(a.out, resp.Answer)
			if len(resp.Sources) > 0 {
				fmt.Fprintln(a.out)
				fmt.Fprintln(a.out, headerStyle.Render(fmt.Sprintf("Sources (confidence %.0f%%)", resp.Confidence*100)))
				for _, s := range resp.Sources {
					fmt.Fprintf(a.out, "  %s %s: %s %s\n", s.SOPID, s.Title, s.Section, mutedStyle.Render(fmt.Sprintf("(%d%%)", s.Relevance)))
				}
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Filters.Department, "department", "", "Only search this department")
	f.StringVar(&req.Filters.Category, "category", "", "Only search this category")
	f.IntVar(&req.TopK, "top-k", assistant.DefaultTopK, "Number of sources to retrieve")
	f.BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
