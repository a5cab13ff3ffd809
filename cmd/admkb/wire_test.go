package main

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/admissions-kb/internal/core/domain"
	"github.com/custodia-labs/admissions-kb/internal/core/ports/driving"
	"github.com/custodia-labs/admissions-kb/internal/logger"
)

func quietLogs(t *testing.T) {
	t.Helper()
	prev := logger.Output()
	logger.SetOutput(io.Discard)
	t.Cleanup(func() { logger.SetOutput(prev) })
}

func TestWire_Memory(t *testing.T) {
	quietLogs(t)
	t.Setenv("ADMKB_HOME", t.TempDir())

	settings := domain.DefaultAppSettings()
	settings.Storage.Backend = domain.StorageMemory

	svc, err := wire(context.Background(), &settings)
	require.NoError(t, err)
	defer func() { assert.NoError(t, svc.Close()) }()

	result, err := svc.Ingest.Ingest(context.Background(), driving.IngestRequest{
		Raw: domain.RawDocument{
			OwnerID:  "alice",
			Filename: "faq.md",
			Content:  []byte("# FAQ\n\nThe application fee is waived for first-generation students."),
		},
	})
	require.NoError(t, err)
	assert.True(t, result.Degraded, "no embedding provider is configured")

	resp, err := svc.Retrieval.Search(context.Background(), domain.Query{
		Text:     "application fee",
		Strategy: domain.StrategyKeyword,
		Owner:    domain.OwnerFilter{OwnerID: "alice"},
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, result.Document.ID, resp.Results[0].DocumentID)

	session, err := svc.Sessions.Create(context.Background(), "alice", 0)
	require.NoError(t, err)
	assert.Equal(t, "alice", session.OwnerID)
	assert.NotNil(t, svc.Janitor)
}

func TestWire_SQLite(t *testing.T) {
	quietLogs(t)
	home := t.TempDir()
	t.Setenv("ADMKB_HOME", home)

	settings := domain.DefaultAppSettings()

	svc, err := wire(context.Background(), &settings)
	require.NoError(t, err)

	_, err = svc.Ingest.Ingest(context.Background(), driving.IngestRequest{
		Raw: domain.RawDocument{
			OwnerID:  "alice",
			Filename: "tour.html",
			Content:  []byte("<html><body><p>Campus tours start at the welcome center.</p></body></html>"),
		},
		Shareable: true,
	})
	require.NoError(t, err)
	require.NoError(t, svc.Close())

	// A second wiring sees what the first one stored.
	svc, err = wire(context.Background(), &settings)
	require.NoError(t, err)
	defer func() { assert.NoError(t, svc.Close()) }()

	docs, err := svc.Documents.List(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "tour.html", docs[0].Filename)
}

func TestWire_UnknownBackend(t *testing.T) {
	quietLogs(t)
	settings := domain.DefaultAppSettings()
	settings.Storage.Backend = "postgres"

	_, err := wire(context.Background(), &settings)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDataDir(t *testing.T) {
	t.Setenv("ADMKB_HOME", "/srv/admkb")
	assert.Equal(t, "/data/kb", dataDir("/data/kb"))
	assert.Equal(t, "/srv/admkb/data", dataDir(""))
	assert.Equal(t, "/srv/admkb/prompts", promptDir())

	t.Setenv("ADMKB_HOME", "")
	assert.Empty(t, dataDir(""))
	assert.Empty(t, promptDir())
}

func TestNewRegistry(t *testing.T) {
	types := newRegistry().SupportedMIMETypes()
	for _, want := range []string{
		"text/plain",
		"text/markdown",
		"text/html",
		"application/pdf",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	} {
		assert.Contains(t, types, want)
	}
}
