package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/admissions-kb/internal/adapters/driven/ai"
	"github.com/custodia-labs/admissions-kb/internal/adapters/driven/config/file"
	"github.com/custodia-labs/admissions-kb/internal/adapters/driven/oracle"
	"github.com/custodia-labs/admissions-kb/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/admissions-kb/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/admissions-kb/internal/adapters/driving/cli"
	"github.com/custodia-labs/admissions-kb/internal/core/domain"
	"github.com/custodia-labs/admissions-kb/internal/core/ports/driven"
	"github.com/custodia-labs/admissions-kb/internal/core/services"
	"github.com/custodia-labs/admissions-kb/internal/extractors"
	"github.com/custodia-labs/admissions-kb/internal/extractors/docx"
	"github.com/custodia-labs/admissions-kb/internal/extractors/html"
	"github.com/custodia-labs/admissions-kb/internal/extractors/markdown"
	"github.com/custodia-labs/admissions-kb/internal/extractors/pdf"
	"github.com/custodia-labs/admissions-kb/internal/extractors/plaintext"
	"github.com/custodia-labs/admissions-kb/internal/logger"
	"github.com/custodia-labs/admissions-kb/internal/postprocessors/chunker"
)

// stores is the storage backend chosen by settings.
type stores struct {
	documents driven.DocumentStore
	sessions  driven.SessionStore
	close     func() error
}

// wire builds the pipeline from settings. It is called once, by the
// first command that needs it.
func wire(_ context.Context, settings *domain.AppSettings) (*cli.Services, error) {
	st, err := openStores(settings.Storage)
	if err != nil {
		return nil, err
	}

	var prompts driven.PromptStore
	if ps, err := file.NewPromptStore(promptDir(), map[string]string{
		driven.PromptMetadataExtraction: oracle.DefaultInstruction,
	}); err == nil {
		prompts = ps
	} else {
		logger.Debug("Prompt store unavailable, using built-in prompts: %v", err)
	}
	aiServices := ai.Init(settings, prompts)

	ingest := services.NewIngestService(
		newRegistry(),
		chunker.New(chunker.WithMaxChars(settings.Chunker.MaxChars)),
		services.NewChunkAssembler(aiServices.EmbeddingService, settings.Embedding),
		aiServices.Oracle,
		st.documents,
		settings.Oracle,
	)

	return &cli.Services{
		Settings:  settings,
		Ingest:    ingest,
		Retrieval: services.NewRetrievalService(st.documents, aiServices.EmbeddingService, settings.Retrieval),
		Documents: services.NewDocumentService(st.documents),
		Sessions:  services.NewSessionService(st.sessions, settings.Session),
		Janitor:   services.NewSessionJanitor(st.sessions, services.DefaultJanitorInterval),
		Close: func() error {
			aiServices.Close()
			return st.close()
		},
	}, nil
}

func openStores(settings domain.StorageSettings) (*stores, error) {
	switch settings.Backend {
	case domain.StorageMemory:
		docs, err := memory.NewDocumentStore()
		if err != nil {
			return nil, fmt.Errorf("opening memory store: %w", err)
		}
		return &stores{
			documents: docs,
			sessions:  memory.NewSessionStore(),
			close:     docs.Close,
		}, nil

	case domain.StorageSQLite, "":
		store, err := sqlite.NewStore(dataDir(settings.DataDir))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
		}
		logger.Debug("Using SQLite store at %s", store.Path())
		return &stores{
			documents: store.DocumentStore(),
			sessions:  store.SessionStore(),
			close:     store.Close,
		}, nil

	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", domain.ErrInvalidInput, settings.Backend)
	}
}

func newRegistry() *extractors.Registry {
	registry := extractors.NewRegistry()
	registry.Register(plaintext.New())
	registry.Register(markdown.New())
	registry.Register(html.New())
	registry.Register(pdf.New())
	registry.Register(docx.New())
	return registry
}

// dataDir prefers the configured directory, then ADMKB_HOME/data.
func dataDir(configured string) string {
	if configured != "" {
		return configured
	}
	if home := os.Getenv("ADMKB_HOME"); home != "" {
		return filepath.Join(home, "data")
	}
	return ""
}

func promptDir() string {
	if home := os.Getenv("ADMKB_HOME"); home != "" {
		return filepath.Join(home, "prompts")
	}
	return ""
}
