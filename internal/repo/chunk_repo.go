package repo

import (
	"context"
	"database/sql"

	"github.com/pgvector/pgvector-go"

	"medrag/internal/model"
)

// ChunkRepo is the vector index adapter. Search is the only operation used on
// the query path; it never mutates the index. Writes belong to the ingestion
// pipeline and the reindex job.
type ChunkRepo struct {
	db *sql.DB
}

func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

func (r *ChunkRepo) Insert(ctx context.Context, chunks []*model.DocumentChunk) error {
	const query = `
		INSERT INTO document_chunks (chunk_id, doc_id, seq, text, source, role, page, embedding, ctime)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (chunk_id) DO UPDATE SET
			text = EXCLUDED.text,
			embedding = EXCLUDED.embedding,
			ctime = EXCLUDED.ctime
	`
	for _, chunk := range chunks {
		var embedding interface{}
		if chunk.Embedding != nil {
			embedding = pgvector.NewVector(chunk.Embedding)
		}
		if _, err := r.db.ExecContext(ctx, query,
			chunk.ChunkID,
			chunk.DocID,
			chunk.Seq,
			chunk.Text,
			chunk.Source,
			chunk.Role,
			chunk.Page,
			embedding,
			chunk.Ctime,
		); err != nil {
			return err
		}
	}
	return nil
}

// Search returns the topK nearest chunks by cosine similarity, best first.
// Pending chunks (nil embedding) are excluded; ties pass through in index order.
func (r *ChunkRepo) Search(ctx context.Context, vector []float32, topK int) ([]model.ChunkMatch, error) {
	const query = `
		SELECT chunk_id, doc_id, text, source, role, page, 1 - (embedding <=> $1) AS score
		FROM document_chunks
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, pgvector.NewVector(vector), topK)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var matches []model.ChunkMatch
	for rows.Next() {
		var m model.ChunkMatch
		if err := rows.Scan(&m.ChunkID, &m.DocID, &m.Text, &m.Source, &m.Role, &m.Page, &m.Score); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (r *ChunkRepo) DeleteByDoc(ctx context.Context, docID string) error {
	const query = `DELETE FROM document_chunks WHERE doc_id = $1`
	_, err := r.db.ExecContext(ctx, query, docID)
	return err
}

// ListPending returns chunks whose embedding has not been written yet, oldest
// first, for the reindex job to backfill.
func (r *ChunkRepo) ListPending(ctx context.Context, limit int) ([]model.DocumentChunk, error) {
	const query = `
		SELECT chunk_id, doc_id, seq, text, source, role, page, ctime
		FROM document_chunks
		WHERE embedding IS NULL
		ORDER BY ctime ASC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var chunks []model.DocumentChunk
	for rows.Next() {
		var chunk model.DocumentChunk
		if err := rows.Scan(&chunk.ChunkID, &chunk.DocID, &chunk.Seq, &chunk.Text, &chunk.Source, &chunk.Role, &chunk.Page, &chunk.Ctime); err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

func (r *ChunkRepo) UpdateEmbedding(ctx context.Context, chunkID string, vector []float32) error {
	const query = `UPDATE document_chunks SET embedding = $1 WHERE chunk_id = $2`
	_, err := r.db.ExecContext(ctx, query, pgvector.NewVector(vector), chunkID)
	return err
}
