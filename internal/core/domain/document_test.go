package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDocument() *Document {
	return &Document{
		ID:       "doc-1",
		OwnerID:  "user-a",
		Filename: "stanford.pdf",
		Content:  "Stanford University.",
		Chunks: []Chunk{
			{Index: 0, Content: "Stanford", Embedding: []float32{1, 0}},
			{Index: 1, Content: "University."},
		},
	}
}

func TestDocument_NumChunks(t *testing.T) {
	doc := validDocument()
	assert.Equal(t, 2, doc.NumChunks())
	assert.Equal(t, 1, doc.EmbeddedChunks())
}

func TestDocument_Validate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		require.NoError(t, validDocument().Validate())
	})

	tests := []struct {
		name   string
		mutate func(d *Document)
	}{
		{"missing owner", func(d *Document) { d.OwnerID = " " }},
		{"missing filename", func(d *Document) { d.Filename = "" }},
		{"no chunks", func(d *Document) { d.Chunks = nil }},
		{"gap in indices", func(d *Document) { d.Chunks[1].Index = 2 }},
		{"starts at one", func(d *Document) { d.Chunks[0].Index = 1 }},
		{"mixed dimensions", func(d *Document) { d.Chunks[1].Embedding = []float32{1, 2, 3} }},
		{"unknown category", func(d *Document) { d.Category = "sports" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validDocument()
			tt.mutate(doc)
			assert.ErrorIs(t, doc.Validate(), ErrSchemaViolation)
		})
	}
}

func TestChunk_HasEmbedding(t *testing.T) {
	assert.False(t, (&Chunk{}).HasEmbedding())
	assert.False(t, (&Chunk{Embedding: []float32{}}).HasEmbedding())
	assert.True(t, (&Chunk{Embedding: []float32{0.1}}).HasEmbedding())
}

func TestMetadataSchema(t *testing.T) {
	for _, c := range AllCategories() {
		schema, ok := MetadataSchema(c)
		assert.True(t, ok, c)
		assert.NotEmpty(t, schema, c)
	}

	_, ok := MetadataSchema("unknown")
	assert.False(t, ok)
	assert.Equal(t, CategoryGeneral, Category("").OrDefault())
	assert.Equal(t, CategoryCollege, CategoryCollege.OrDefault())
}
