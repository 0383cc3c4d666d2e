package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/wve/internal/adapters/driving/mcp"
	"github.com/custodia-labs/wve/internal/logger"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can save, read
and reconcile documents.

By default, the server communicates over stdio using JSON-RPC.

Use --http to serve over HTTP instead. Prometheus metrics are then
available at /metrics on the same address.

Examples:
  # Stdio mode (for desktop assistants)
  wve mcp serve

  # HTTP mode
  wve mcp serve --http :8080`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().String("http", "", "HTTP listen address (empty = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	addr, err := cmd.Flags().GetString("http")
	if err != nil {
		return fmt.Errorf("getting http flag: %w", err)
	}

	ports := &mcp.Ports{
		Document: documentService,
		History:  historyService,
		Temporal: temporalService,
		Merge:    mergeService,
		Compare:  compareService,
		Metrics:  metricsHandler,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if reloadConfig != nil {
		go func() {
			if err := reloadConfig(ctx); err != nil {
				logger.Warn("config reload stopped: %v", err)
			}
		}()
	}

	if addr != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://%s\n", addr)
		return server.RunHTTP(ctx, addr)
	}

	return server.Run(ctx)
}
