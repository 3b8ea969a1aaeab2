package main

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/sopforge/core/internal/impact"
	"github.com/sopforge/core/internal/mcptools"
)

func newMCPCmd(a *app) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the graph tools over MCP on stdio",
		Long: `Start an MCP server on stdin/stdout exposing sop_impact, sop_cycles,
sop_validate and sop_node. Logs go to stderr so they do not interfere with
the protocol. With --watch the graph is reloaded when it changes on disk.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.load()
			if err != nil {
				return err
			}
			if watch || a.cfg.Graph.Watch {
				go func() {
					if err := s.Watch(cmd.Context()); err != nil {
						a.logger.Error("graph watcher stopped", "error", err)
					}
				}()
			}

			srv := mcptools.NewServer("sopforge", Version, s, impact.NewAnalyzer(a.cfg.Risk, a.logger))
			return server.ServeStdio(srv)
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "Reload the graph when it changes")
	return cmd
}
