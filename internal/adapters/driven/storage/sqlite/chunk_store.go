package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-site/internal/core/domain"
	"github.com/custodia-labs/sercha-site/internal/core/ports/driven"
)

// stateBatchSize bounds the IN list of one DocumentStates query.
const stateBatchSize = 200

const chunkColumns = `c.chunk_id, c.doc_key, c.url, c.path, c.category, c.title, c.chunk_index,
	c.content, c.embedding, c.content_hash, c.published_at, c.modified_at, c.updated_at, c.metadata`

// chunkStore implements driven.ChunkStore.
type chunkStore struct {
	store *Store
}

var _ driven.ChunkStore = (*chunkStore)(nil)

// DocumentState returns what is stored for a document key.
func (s *chunkStore) DocumentState(ctx context.Context, docKey string) (*domain.DocumentState, error) {
	states, err := s.DocumentStates(ctx, []string{docKey})
	if err != nil {
		return nil, err
	}
	state, ok := states[docKey]
	if !ok {
		return nil, nil
	}
	return &state, nil
}

// DocumentStates returns the stored state for each known key.
func (s *chunkStore) DocumentStates(ctx context.Context, docKeys []string) (map[string]domain.DocumentState, error) {
	states := make(map[string]domain.DocumentState, len(docKeys))

	for start := 0; start < len(docKeys); start += stateBatchSize {
		end := min(start+stateBatchSize, len(docKeys))
		batch := docKeys[start:end]

		args := make([]any, len(batch))
		for i, k := range batch {
			args[i] = k
		}

		rows, err := s.store.db.QueryContext(ctx, `
			SELECT doc_key, MIN(url), MIN(category), MIN(content_hash), COUNT(*), MAX(updated_at)
			FROM chunks
			WHERE doc_key IN (`+placeholders(len(batch))+`)
			GROUP BY doc_key
		`, args...)
		if err != nil {
			return nil, fmt.Errorf("querying document states: %w", err)
		}

		for rows.Next() {
			var st domain.DocumentState
			var updatedAt sql.NullString
			if err := rows.Scan(&st.DocKey, &st.URL, &st.Category, &st.ContentHash, &st.Chunks, &updatedAt); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scanning document state: %w", err)
			}
			st.UpdatedAt = parseNullableTime(updatedAt)
			states[st.DocKey] = st
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("iterating document states: %w", err)
		}
		rows.Close()
	}

	return states, nil
}

// ReplaceDocument deletes every chunk under docKeys or paths, then inserts chunks.
func (s *chunkStore) ReplaceDocument(ctx context.Context, docKeys, paths []string, chunks []domain.Chunk) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := deleteChunks(ctx, tx, docKeys, paths); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (chunk_id, doc_key, url, path, category, title, chunk_index, content,
			embedding, content_hash, published_at, modified_at, updated_at, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, c := range chunks {
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		if c.UpdatedAt.IsZero() {
			c.UpdatedAt = now
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.DocKey, c.URL, c.Path, c.Category, c.Title, c.Index,
			c.Content, float32SliceToBytes(c.Embedding), c.ContentHash,
			formatTimePtr(c.PublishedAt), formatTimePtr(c.ModifiedAt),
			formatNullableTime(c.UpdatedAt), nullString(c.Metadata)); err != nil {
			return fmt.Errorf("saving chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// DeleteDocuments removes chunks by document key and by normalised path.
func (s *chunkStore) DeleteDocuments(ctx context.Context, docKeys, paths []string) (int, error) {
	return deleteChunks(ctx, s.store.db, docKeys, paths)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func deleteChunks(ctx context.Context, db execer, docKeys, paths []string) (int, error) {
	var conds []string
	var args []any
	if len(docKeys) > 0 {
		conds = append(conds, "doc_key IN ("+placeholders(len(docKeys))+")")
		for _, k := range docKeys {
			args = append(args, k)
		}
	}
	if len(paths) > 0 {
		conds = append(conds, "path IN ("+placeholders(len(paths))+")")
		for _, p := range paths {
			args = append(args, p)
		}
	}
	if len(conds) == 0 {
		return 0, nil
	}

	res, err := db.ExecContext(ctx, "DELETE FROM chunks WHERE "+strings.Join(conds, " OR "), args...)
	if err != nil {
		return 0, fmt.Errorf("deleting chunks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted chunks: %w", err)
	}
	return int(n), nil
}

// FullTextSearch ranks chunks with FTS5 bm25 over title and content.
func (s *chunkStore) FullTextSearch(ctx context.Context, q domain.ChunkQuery) ([]domain.ScoredChunk, error) {
	match := ftsMatch(q)
	if match == "" {
		return nil, nil
	}

	query := `
		SELECT ` + chunkColumns + `, -bm25(chunks_fts)
		FROM chunks_fts
		JOIN chunks c ON c.id = chunks_fts.rowid
		WHERE chunks_fts MATCH ?`
	args := []any{match}
	if q.Category != "" {
		query += " AND c.category = ?"
		args = append(args, q.Category)
	}
	query += " ORDER BY bm25(chunks_fts) LIMIT ?"
	args = append(args, limitOrDefault(q.Limit))

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("full-text search: %w", err)
	}
	defer rows.Close()

	return scanScoredChunks(rows)
}

// SubstringSearch matches chunks whose title or content contains any term or phrase.
func (s *chunkStore) SubstringSearch(ctx context.Context, q domain.ChunkQuery) ([]domain.ScoredChunk, error) {
	needles := queryNeedles(q)
	if len(needles) == 0 {
		return nil, nil
	}

	var conds []string
	var args []any
	for _, n := range needles {
		conds = append(conds, `(c.title LIKE ? ESCAPE '\' OR c.content LIKE ? ESCAPE '\')`)
		pattern := "%" + likeEscape(n) + "%"
		args = append(args, pattern, pattern)
	}

	query := `SELECT ` + chunkColumns + `, 0 FROM chunks c WHERE (` + strings.Join(conds, " OR ") + `)`
	if q.Category != "" {
		query += " AND c.category = ?"
		args = append(args, q.Category)
	}
	query += " ORDER BY c.updated_at DESC, c.doc_key, c.chunk_index LIMIT ?"
	args = append(args, limitOrDefault(q.Limit))

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("substring search: %w", err)
	}
	defer rows.Close()

	found, err := scanScoredChunks(rows)
	if err != nil {
		return nil, err
	}

	for i := range found {
		haystack := strings.ToLower(found[i].Chunk.Title + " " + found[i].Chunk.Content)
		for _, n := range needles {
			if strings.Contains(haystack, n) {
				found[i].Raw++
			}
		}
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].Raw > found[j].Raw })
	return found, nil
}

// ListByCategory returns the most recently updated chunks of one category.
func (s *chunkStore) ListByCategory(ctx context.Context, category string, limit int) ([]domain.ScoredChunk, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+chunkColumns+`, 0
		FROM chunks c
		WHERE c.category = ?
		ORDER BY c.updated_at DESC, c.doc_key, c.chunk_index
		LIMIT ?
	`, category, limitOrDefault(limit))
	if err != nil {
		return nil, fmt.Errorf("listing category: %w", err)
	}
	defer rows.Close()

	return scanScoredChunks(rows)
}

// Stats returns document and chunk totals.
func (s *chunkStore) Stats(ctx context.Context) (domain.IndexStats, error) {
	var stats domain.IndexStats
	err := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(DISTINCT doc_key), COUNT(*) FROM chunks",
	).Scan(&stats.Documents, &stats.Chunks)
	if err != nil {
		return stats, fmt.Errorf("counting chunks: %w", err)
	}
	return stats, nil
}

// ==================== Helper Functions ====================

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return domain.DefaultCandidateLimit
	}
	return limit
}

// queryNeedles lower-cases and deduplicates the query's terms and phrases.
func queryNeedles(q domain.ChunkQuery) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range append(append([]string{}, q.Phrases...), q.Terms...) {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// ftsMatch builds an FTS5 MATCH expression: every term and phrase quoted, OR-ed.
func ftsMatch(q domain.ChunkQuery) string {
	var parts []string
	for _, n := range queryNeedles(q) {
		parts = append(parts, `"`+strings.ReplaceAll(n, `"`, `""`)+`"`)
	}
	return strings.Join(parts, " OR ")
}

// scanScoredChunks scans rows of chunkColumns followed by a score column.
func scanScoredChunks(rows *sql.Rows) ([]domain.ScoredChunk, error) {
	var out []domain.ScoredChunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		var c domain.Chunk
		var embedding []byte
		var published, modified, updated, metadata sql.NullString
		var raw float64

		if err := rows.Scan(&c.ID, &c.DocKey, &c.URL, &c.Path, &c.Category, &c.Title, &c.Index,
			&c.Content, &embedding, &c.ContentHash, &published, &modified, &updated, &metadata,
			&raw); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}

		c.Embedding = bytesToFloat32Slice(embedding)
		c.PublishedAt = parseTimePtr(published)
		c.ModifiedAt = parseTimePtr(modified)
		c.UpdatedAt = parseNullableTime(updated)
		if metadata.Valid {
			c.Metadata = metadata.String
		}
		if raw < 0 {
			raw = 0
		}
		out = append(out, domain.ScoredChunk{Chunk: c, Raw: raw})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return out, nil
}
