package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/admissions-kb/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/admissions-kb/internal/adapters/driving/mcp"
	"github.com/custodia-labs/admissions-kb/internal/logger"
)

var (
	serveAddr     string
	serveAllowAll bool
	serveNoMCP    bool
)

var serveCmd = servicesCommand(&cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serves the document pipeline over HTTP.

Routes:
  POST   /v1/sessions         create a session {owner_id, ttl_seconds}
  DELETE /v1/sessions/{id}    revoke a session
  POST   /v1/documents        upload (multipart: file, id, category, shareable)
  GET    /v1/documents        list the owner's documents
  GET    /v1/documents/{id}   get a document
  DELETE /v1/documents/{id}   delete a document
  GET    /v1/search           search (q, strategy, size, category)
  GET    /healthz             liveness

The owner is taken from "Authorization: Bearer <session>" or X-Owner-ID.
The MCP endpoint is mounted at /mcp unless --no-mcp is set.`,
	Args: cobra.NoArgs,
	RunE: runServe,
})

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from server.addr)")
	serveCmd.Flags().BoolVar(&serveAllowAll, "allow-all-origins", false, "allow every CORS origin")
	serveCmd.Flags().BoolVar(&serveNoMCP, "no-mcp", false, "do not mount the MCP endpoint")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if ingestService == nil || retrievalService == nil || documentService == nil || sessionService == nil {
		return errors.New("services not configured")
	}

	cfg := httpapi.Config{
		Addr:            serveAddr,
		AllowAllOrigins: serveAllowAll,
		AccessLog:       verbose,
	}
	if appSettings != nil {
		if cfg.Addr == "" {
			cfg.Addr = appSettings.Server.Addr
		}
		cfg.AllowAllOrigins = cfg.AllowAllOrigins || appSettings.Server.AllowAllOrigins
	}

	server, err := httpapi.New(cfg, &httpapi.Ports{
		Ingest:    ingestService,
		Retrieval: retrievalService,
		Documents: documentService,
		Sessions:  sessionService,
	})
	if err != nil {
		return err
	}

	if !serveNoMCP {
		mcpServer, err := mcp.NewServer(&mcp.Ports{Retrieval: retrievalService, Documents: documentService})
		if err != nil {
			return err
		}
		server.Mount("/mcp", mcpServer.Handler())
	}

	if sessionJanitor != nil {
		go func() {
			if err := sessionJanitor.Start(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("Session janitor stopped: %v", err)
			}
		}()
		defer sessionJanitor.Stop()
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", cfg.Addr)
	return server.ListenAndServe(cmd.Context())
}
