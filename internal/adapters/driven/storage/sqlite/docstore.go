package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/admissions-kb/internal/core/domain"
	"github.com/custodia-labs/admissions-kb/internal/core/ports/driven"
)

// ftsTermPattern matches the tokens the unicode61 tokenizer would index.
var ftsTermPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// visibleClause restricts a documents row aliased d to an owner filter.
// Arguments: owner ID, include-shared flag.
const visibleClause = `(d.owner_id = ? OR (? = 1 AND d.shareable = 1))`

// categoryClause optionally restricts d.category. Arguments: category twice.
const categoryClause = `(? = '' OR d.category = ?)`

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

// Index replaces a document and its chunks in one transaction.
func (s *documentStore) Index(ctx context.Context, doc *domain.Document) (string, error) {
	if doc == nil {
		return "", fmt.Errorf("%w: document is nil", domain.ErrSchemaViolation)
	}
	if err := doc.Validate(); err != nil {
		return "", err
	}

	id := doc.ID
	if id == "" {
		id = uuid.NewString()
	}
	category := doc.Category
	if category == "" {
		category = domain.CategoryGeneral
	}
	metadata := doc.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("%w: marshalling metadata: %w", domain.ErrSchemaViolation, err)
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return "", storeError("beginning transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var existingOwner string
	err = tx.QueryRowContext(ctx, "SELECT owner_id FROM documents WHERE id = ?", id).Scan(&existingOwner)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return "", storeError("checking document owner", err)
	case existingOwner != doc.OwnerID:
		return "", domain.ErrForbidden
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks_fts WHERE document_id = ?", id); err != nil {
		return "", storeError("clearing full-text rows", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", id); err != nil {
		return "", storeError("clearing chunks", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, owner_id, filename, mime_type, content, category, metadata, shareable, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			filename = excluded.filename,
			mime_type = excluded.mime_type,
			content = excluded.content,
			category = excluded.category,
			metadata = excluded.metadata,
			shareable = excluded.shareable,
			indexed_at = excluded.indexed_at
	`, id, doc.OwnerID, doc.Filename, doc.MIMEType, doc.Content, string(category),
		string(metadataJSON), boolToInt(doc.Shareable), doc.IndexedAt.UnixNano())
	if err != nil {
		return "", storeError("saving document", err)
	}

	chunkStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (document_id, position, content, embedding, truncated)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return "", storeError("preparing chunk statement", err)
	}
	defer chunkStmt.Close()

	ftsStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks_fts (content, filename, document_id, position)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return "", storeError("preparing full-text statement", err)
	}
	defer ftsStmt.Close()

	for _, chunk := range doc.Chunks {
		if _, err := chunkStmt.ExecContext(ctx, id, chunk.Index, chunk.Content,
			encodeVector(chunk.Embedding), boolToInt(chunk.Truncated)); err != nil {
			return "", storeError("saving chunk", err)
		}
		if _, err := ftsStmt.ExecContext(ctx, chunk.Content, doc.Filename, id, chunk.Index); err != nil {
			return "", storeError("indexing chunk text", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", storeError("committing transaction", err)
	}
	return id, nil
}

// Get retrieves a document with its chunks.
func (s *documentStore) Get(ctx context.Context, id string, owner domain.OwnerFilter) (*domain.Document, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}

	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, owner_id, filename, mime_type, content, category, metadata, shareable, indexed_at
		FROM documents WHERE id = ?
	`, id)
	doc, err := scanDocument(row)
	if err != nil {
		return nil, err
	}
	if !owner.Matches(doc) {
		return nil, domain.ErrForbidden
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT position, content, embedding, truncated
		FROM chunks WHERE document_id = ?
		ORDER BY position
	`, id)
	if err != nil {
		return nil, storeError("querying chunks", err)
	}
	defer rows.Close()

	for rows.Next() {
		var chunk domain.Chunk
		var embeddingBlob []byte
		if err := rows.Scan(&chunk.Index, &chunk.Content, &embeddingBlob, &chunk.Truncated); err != nil {
			return nil, storeError("scanning chunk", err)
		}
		chunk.Embedding = decodeVector(embeddingBlob)
		doc.Chunks = append(doc.Chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("iterating chunks", err)
	}

	return doc, nil
}

// List returns visible documents, newest first, without chunks.
func (s *documentStore) List(ctx context.Context, owner domain.OwnerFilter) ([]domain.Document, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT d.id, d.owner_id, d.filename, d.mime_type, d.content, d.category, d.metadata, d.shareable, d.indexed_at
		FROM documents d
		WHERE `+visibleClause+`
		ORDER BY d.indexed_at DESC, d.id ASC
	`, owner.OwnerID, boolToInt(owner.IncludeShared))
	if err != nil {
		return nil, storeError("querying documents", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("iterating documents", err)
	}

	return docs, nil
}

// Delete removes a document, its chunks and its full-text rows.
func (s *documentStore) Delete(ctx context.Context, id string, owner domain.OwnerFilter) error {
	if err := owner.Validate(); err != nil {
		return err
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return storeError("beginning transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var docOwner string
	err = tx.QueryRowContext(ctx, "SELECT owner_id FROM documents WHERE id = ?", id).Scan(&docOwner)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return storeError("checking document owner", err)
	}
	if docOwner != owner.OwnerID {
		return domain.ErrForbidden
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks_fts WHERE document_id = ?", id); err != nil {
		return storeError("deleting full-text rows", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", id); err != nil {
		return storeError("deleting chunks", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id); err != nil {
		return storeError("deleting document", err)
	}

	if err := tx.Commit(); err != nil {
		return storeError("committing transaction", err)
	}
	return nil
}

// KeywordSearch ranks documents with FTS5 bm25 over chunk text and
// filenames, keeping the best chunk per document.
func (s *documentStore) KeywordSearch(ctx context.Context, text string, owner domain.OwnerFilter, size int,
	filters domain.SearchFilters) ([]domain.SearchHit, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	match := ftsQuery(text)
	if match == "" || size <= 0 {
		return nil, nil
	}

	// bm25 is lower-is-better; column weights favour chunk text over filename.
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT d.id, d.owner_id, d.filename, d.category, d.indexed_at,
			c.position, c.content, bm25(chunks_fts, 1.0, 0.5, 0.0, 0.0) AS rank
		FROM chunks_fts
		JOIN documents d ON d.id = chunks_fts.document_id
		JOIN chunks c ON c.document_id = chunks_fts.document_id AND c.position = chunks_fts.position
		WHERE chunks_fts MATCH ?
			AND `+visibleClause+`
			AND `+categoryClause+`
		ORDER BY rank
	`, match, owner.OwnerID, boolToInt(owner.IncludeShared),
		string(filters.Category), string(filters.Category))
	if err != nil {
		return nil, storeError("keyword search", err)
	}
	defer rows.Close()

	best := make(map[string]domain.SearchHit)
	for rows.Next() {
		var hit domain.SearchHit
		var category string
		var indexedAt int64
		var rank float64
		if err := rows.Scan(&hit.DocumentID, &hit.OwnerID, &hit.Filename, &category, &indexedAt,
			&hit.ChunkIndex, &hit.ChunkContent, &rank); err != nil {
			return nil, storeError("scanning keyword hit", err)
		}
		hit.Category = domain.Category(category)
		hit.IndexedAt = time.Unix(0, indexedAt).UTC()
		hit.Score = -rank
		if prev, ok := best[hit.DocumentID]; ok && prev.Score >= hit.Score {
			continue
		}
		best[hit.DocumentID] = hit
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("iterating keyword hits", err)
	}

	return collectHits(best, size), nil
}

// VectorSearch scores every visible embedded chunk by cosine similarity.
// Chunks whose dimensionality differs from the query are skipped.
func (s *documentStore) VectorSearch(ctx context.Context, vector []float32, owner domain.OwnerFilter, size int,
	filters domain.SearchFilters) ([]domain.SearchHit, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if _, ok := cosine(vector, vector); !ok {
		return nil, fmt.Errorf("%w: query vector is empty", domain.ErrInvalidInput)
	}
	if size <= 0 {
		return nil, nil
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT d.id, d.owner_id, d.filename, d.category, d.indexed_at,
			c.position, c.content, c.embedding
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE c.embedding IS NOT NULL
			AND `+visibleClause+`
			AND `+categoryClause+`
	`, owner.OwnerID, boolToInt(owner.IncludeShared),
		string(filters.Category), string(filters.Category))
	if err != nil {
		return nil, storeError("vector search", err)
	}
	defer rows.Close()

	best := make(map[string]domain.SearchHit)
	for rows.Next() {
		var hit domain.SearchHit
		var category string
		var indexedAt int64
		var embeddingBlob []byte
		if err := rows.Scan(&hit.DocumentID, &hit.OwnerID, &hit.Filename, &category, &indexedAt,
			&hit.ChunkIndex, &hit.ChunkContent, &embeddingBlob); err != nil {
			return nil, storeError("scanning vector hit", err)
		}
		score, ok := cosine(vector, decodeVector(embeddingBlob))
		if !ok {
			continue
		}
		hit.Category = domain.Category(category)
		hit.IndexedAt = time.Unix(0, indexedAt).UTC()
		hit.Score = score
		if prev, seen := best[hit.DocumentID]; seen && prev.Score >= hit.Score {
			continue
		}
		best[hit.DocumentID] = hit
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("iterating vector hits", err)
	}

	return collectHits(best, size), nil
}

// Close is a no-op; the owning Store closes the database.
func (s *documentStore) Close() error {
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDocument scans a documents row without chunks.
func scanDocument(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var category, metadataJSON string
	var indexedAt int64
	if err := row.Scan(&doc.ID, &doc.OwnerID, &doc.Filename, &doc.MIMEType, &doc.Content,
		&category, &metadataJSON, &doc.Shareable, &indexedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, storeError("scanning document", err)
	}
	doc.Category = domain.Category(category)
	doc.IndexedAt = time.Unix(0, indexedAt).UTC()

	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("%w: unmarshalling metadata: %w", domain.ErrSchemaViolation, err)
		}
	}
	if len(doc.Metadata) == 0 {
		doc.Metadata = nil
	}

	return &doc, nil
}

// ftsQuery turns free text into an FTS5 expression that ORs quoted
// terms, so user input can never inject query syntax.
func ftsQuery(text string) string {
	terms := ftsTermPattern.FindAllString(strings.ToLower(text), -1)
	if len(terms) == 0 {
		return ""
	}
	seen := make(map[string]bool, len(terms))
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		if seen[t] {
			continue
		}
		seen[t] = true
		quoted = append(quoted, `"`+t+`"`)
	}
	return strings.Join(quoted, " OR ")
}

func collectHits(best map[string]domain.SearchHit, size int) []domain.SearchHit {
	hits := make([]domain.SearchHit, 0, len(best))
	for _, h := range best {
		hits = append(hits, h)
	}
	return domain.RankHits(hits, size)
}
