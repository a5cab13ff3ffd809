// Package cli provides the admkb command line.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/admissions-kb/internal/core/domain"
	"github.com/custodia-labs/admissions-kb/internal/core/ports/driving"
	"github.com/custodia-labs/admissions-kb/internal/logger"
)

// version is set by Execute from the build.
var version = "dev"

// verbose enables debug logging.
var verbose bool

// annotationServices marks commands that need the pipeline wired.
const annotationServices = "services"

// BackgroundJob is a long-running task started alongside the server.
type BackgroundJob interface {
	Start(ctx context.Context) error
	Stop()
}

// Services are the core services the commands drive.
type Services struct {
	Settings  *domain.AppSettings
	Ingest    driving.IngestService
	Retrieval driving.RetrievalService
	Documents driving.DocumentService
	Sessions  driving.SessionService
	Janitor   BackgroundJob

	// Close releases stores and AI clients.
	Close func() error
}

// Bootstrap wires Services from the effective settings.
type Bootstrap func(ctx context.Context, settings *domain.AppSettings) (*Services, error)

// Package-level services, set by SetSettingsService and the bootstrap.
var (
	settingsService  driving.SettingsService
	appSettings      *domain.AppSettings
	ingestService    driving.IngestService
	retrievalService driving.RetrievalService
	documentService  driving.DocumentService
	sessionService   driving.SessionService
	sessionJanitor   BackgroundJob
	closeServices    func() error
	bootstrap        Bootstrap
)

var rootCmd = &cobra.Command{
	Use:   "admkb",
	Short: "College-admissions knowledge base",
	Long: `admkb indexes admissions documents (PDF, DOCX, Markdown, HTML, text) into
an owner-scoped knowledge base and answers keyword, vector and hybrid queries.

Documents are chunked, embedded and tagged with category facts, then served
from the command line, over HTTP, or to AI assistants through MCP.`,
	SilenceUsage:       true,
	PersistentPreRunE:  prepare,
	PersistentPostRunE: release,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetSettingsService sets the settings service used by every command.
func SetSettingsService(s driving.SettingsService) {
	settingsService = s
}

// SetBootstrap sets the function that wires services on first use.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// SetServices installs already wired services.
func SetServices(s *Services) {
	appSettings = s.Settings
	ingestService = s.Ingest
	retrievalService = s.Retrieval
	documentService = s.Documents
	sessionService = s.Sessions
	sessionJanitor = s.Janitor
	closeServices = s.Close
}

// Execute runs the root command.
func Execute(ctx context.Context, v string) error {
	if v != "" {
		version = v
	}
	return rootCmd.ExecuteContext(ctx)
}

func needsServices(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[annotationServices] == "true" {
			return true
		}
	}
	return false
}

func prepare(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if !needsServices(cmd) || ingestService != nil {
		return nil
	}
	if bootstrap == nil || settingsService == nil {
		return errors.New("services not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return err
	}
	svc, err := bootstrap(cmd.Context(), settings)
	if err != nil {
		return err
	}
	SetServices(svc)
	return nil
}

func release(_ *cobra.Command, _ []string) error {
	if closeServices == nil {
		return nil
	}
	err := closeServices()
	closeServices = nil
	return err
}

// requireOwner rejects a blank --owner flag.
func requireOwner(owner string) error {
	if owner == "" {
		return errors.New("--owner is required")
	}
	return nil
}

// servicesCommand marks cmd as needing the pipeline wired.
func servicesCommand(cmd *cobra.Command) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[annotationServices] = "true"
	return cmd
}
