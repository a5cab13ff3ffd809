package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/admissions-kb/internal/adapters/driving/mcp"
)

var mcpCmd = servicesCommand(&cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

By default, the server communicates over stdio using JSON-RPC and can be
used with any MCP-compatible assistant.

It exposes:
  - tool "search" (owner, query, strategy, limit, category)
  - tool "get_document" (owner, document_id)
  - resource kb://owners/{ownerId}/documents
  - resource kb://owners/{ownerId}/documents/{documentId}

Use --port to start an HTTP server instead.

Examples:
  # Stdio mode (default)
  admkb mcp

  # HTTP mode (for MCP Inspector, remote access)
  admkb mcp --port 8081

Assistant configuration:
  {
    "mcpServers": {
      "admkb": {
        "command": "/path/to/admkb",
        "args": ["mcp"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
})

func init() {
	mcpCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	ports := &mcp.Ports{
		Retrieval: retrievalService,
		Documents: documentService,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
