package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"medrag/internal/ai"
	"medrag/internal/repo"
)

const reindexBatchSize = 50

// ChunkReindexJob backfills embeddings for chunks left pending when the
// embedding provider was unavailable during upload.
type ChunkReindexJob struct {
	chunks   *repo.ChunkRepo
	embedder ai.IEmbedder
}

func NewChunkReindexJob(chunks *repo.ChunkRepo, embedder ai.IEmbedder) *ChunkReindexJob {
	return &ChunkReindexJob{chunks: chunks, embedder: embedder}
}

func (j *ChunkReindexJob) Name() string {
	return "chunk_reindex"
}

func (j *ChunkReindexJob) Run(ctx context.Context) error {
	if j.chunks == nil || j.embedder == nil {
		return nil
	}
	pending, err := j.chunks.ListPending(ctx, reindexBatchSize)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}
	logger := logutil.GetLogger(ctx)
	done := 0
	for _, chunk := range pending {
		embedding, err := j.embedder.Embed(ctx, chunk.Text, "RETRIEVAL_DOCUMENT")
		if err != nil {
			// Provider still down; the rest of the batch would fail too.
			logger.Warn("reindex embed failed", zap.String("chunk_id", chunk.ChunkID), zap.Error(err))
			break
		}
		if err := j.chunks.UpdateEmbedding(ctx, chunk.ChunkID, embedding); err != nil {
			return err
		}
		done++
	}
	logger.Info("reindex pass", zap.Int("pending", len(pending)), zap.Int("embedded", done))
	return nil
}
