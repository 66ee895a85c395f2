package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dusk-indust/cmmnedit/internal/config"
	"github.com/dusk-indust/cmmnedit/internal/mcptools"
)

func (a *app) newServeMCPCmd() *cobra.Command {
	var (
		document string
		addr     string
	)
	cmd := &cobra.Command{
		Use:   "serve-mcp",
		Short: "Serve the editor to MCP clients",
		Long: `Opens a session and exposes its modeling operations, rule queries, history
and graph queries as MCP tools. Serves over stdio unless an address is
given with --addr or mcp.addr, in which case streamable HTTP is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.openSession(document)
			if err != nil {
				return err
			}
			defer s.Close()

			if addr == "" {
				addr = a.cfg.MCP.Addr
			}
			// Graph queries load a fresh store per call, so a database
			// directory is never reused here.
			newStore := storeFactory(config.Graph{Backend: a.cfg.Graph.Backend})
			server := mcptools.NewEditorMCPServer(mcptools.NewEditorService(s, newStore, a.logger))

			if addr == "" {
				a.logger.Info("serving MCP over stdio")
				return mcptools.RunStdio(cmd.Context(), server)
			}
			a.logger.Info("serving MCP over HTTP", zap.String("addr", addr))
			return mcptools.RunHTTP(cmd.Context(), server, addr)
		},
	}
	cmd.Flags().StringVar(&document, "document", "", "JSON document to open (default: an empty document)")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address for streamable HTTP (default: mcp.addr, stdio when empty)")
	return cmd
}
