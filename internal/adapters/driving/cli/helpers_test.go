package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/admissions-kb/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/admissions-kb/internal/core/domain"
	"github.com/custodia-labs/admissions-kb/internal/core/ports/driving"
	"github.com/custodia-labs/admissions-kb/internal/core/services"
	"github.com/custodia-labs/admissions-kb/internal/extractors"
	"github.com/custodia-labs/admissions-kb/internal/extractors/markdown"
	"github.com/custodia-labs/admissions-kb/internal/extractors/plaintext"
	"github.com/custodia-labs/admissions-kb/internal/logger"
	"github.com/custodia-labs/admissions-kb/internal/postprocessors/chunker"
)

// setupTestServices installs real services over in-memory stores with no
// AI providers. They are removed when the test ends.
func setupTestServices(t *testing.T) {
	t.Helper()

	prevOut := logger.Output()
	logger.SetOutput(io.Discard)

	store, err := memory.NewDocumentStore()
	require.NoError(t, err)

	registry := extractors.NewRegistry()
	registry.Register(plaintext.New())
	registry.Register(markdown.New())

	settings := domain.DefaultAppSettings()
	SetServices(&Services{
		Settings: &settings,
		Ingest: services.NewIngestService(registry, chunker.New(),
			services.NewChunkAssembler(nil, settings.Embedding), nil, store, settings.Oracle),
		Retrieval: services.NewRetrievalService(store, nil, settings.Retrieval),
		Documents: services.NewDocumentService(store),
		Sessions:  services.NewSessionService(memory.NewSessionStore(), settings.Session),
		Close:     func() error { return nil },
	})

	t.Cleanup(func() {
		SetServices(&Services{})
		_ = store.Close()
		logger.SetOutput(prevOut)
	})
}

// execute runs the root command with args and returns everything written.
// Flags are reset first because cobra binds them to package variables.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeWithInput(t, "", args...)
}

// executeWithInput is execute with stdin answering interactive prompts.
func executeWithInput(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(input))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// writeFile creates a file under a temp dir and returns its path.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// ingest indexes content directly through the installed service.
func ingest(t *testing.T, owner, filename, content string, shareable bool) *domain.Document {
	t.Helper()
	result, err := ingestService.Ingest(context.Background(), driving.IngestRequest{
		Raw: domain.RawDocument{
			OwnerID:  owner,
			Filename: filename,
			Content:  []byte(content),
		},
		Shareable: shareable,
	})
	require.NoError(t, err)
	return result.Document
}
