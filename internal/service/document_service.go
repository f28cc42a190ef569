package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"medrag/internal/ai"
	"medrag/internal/filestore"
	"medrag/internal/ingest"
	"medrag/internal/model"
	appErr "medrag/internal/pkg/errors"
	"medrag/internal/repo"
)

const documentTaskType = "RETRIEVAL_DOCUMENT"

// DocumentService owns the ingestion pipeline: persist the original file,
// extract text, chunk it, embed each chunk and upsert it into the index with
// the target role attached. A chunk whose embedding call fails is stored
// pending and picked up by the reindex job.
type DocumentService struct {
	docs     *repo.DocumentRepo
	chunks   *repo.ChunkRepo
	store    filestore.Store
	embedder ai.IEmbedder
	chunker  *ingest.Chunker
}

func NewDocumentService(docs *repo.DocumentRepo, chunks *repo.ChunkRepo, store filestore.Store, embedder ai.IEmbedder) *DocumentService {
	return &DocumentService{
		docs:     docs,
		chunks:   chunks,
		store:    store,
		embedder: embedder,
		chunker:  ingest.NewChunker(ingest.DefaultChunkSize, ingest.DefaultChunkOverlap),
	}
}

func (s *DocumentService) Upload(ctx context.Context, uploaderID, filename, role string, data []byte) (*model.Document, error) {
	if !model.IsValidRole(role) {
		return nil, appErr.ErrInvalid
	}
	if len(data) == 0 {
		return nil, appErr.ErrInvalid
	}
	logger := logutil.GetLogger(ctx).With(zap.String("filename", filename), zap.String("role", role))

	sections, err := ingest.Extract(filename, data)
	if err != nil {
		logger.Error("text extraction failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", appErr.ErrInvalid, err)
	}

	docID := newID()
	fileKey := docID + strings.ToLower(filepath.Ext(filename))
	if err := s.store.Save(ctx, fileKey, nopSeekCloser{bytes.NewReader(data)}, int64(len(data))); err != nil {
		logger.Error("save original file failed", zap.Error(err))
		return nil, err
	}

	now := time.Now().Unix()
	var chunks []*model.DocumentChunk
	seq := 0
	pending := 0
	for _, section := range sections {
		for _, piece := range s.chunker.Split(section.Text) {
			chunk := &model.DocumentChunk{
				ChunkID: fmt.Sprintf("%s-%d", docID, seq),
				DocID:   docID,
				Seq:     seq,
				Text:    piece,
				Source:  filename,
				Role:    role,
				Page:    section.Page,
				Ctime:   now,
			}
			embedding, err := s.embedder.Embed(ctx, piece, documentTaskType)
			if err != nil {
				// Leave the chunk pending rather than failing the whole
				// upload; the reindex job retries it.
				logger.Warn("embed chunk failed, leaving pending", zap.Int("seq", seq), zap.Error(err))
				pending++
			} else {
				chunk.Embedding = embedding
			}
			chunks = append(chunks, chunk)
			seq++
		}
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no text content", appErr.ErrInvalid)
	}

	if err := s.chunks.Insert(ctx, chunks); err != nil {
		logger.Error("index chunks failed", zap.Error(err))
		return nil, err
	}

	doc := &model.Document{
		ID:         docID,
		Filename:   filename,
		Role:       role,
		UploadedBy: uploaderID,
		FileKey:    fileKey,
		ChunkCount: len(chunks),
		Ctime:      now,
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, err
	}
	logger.Info("document ingested",
		zap.String("doc_id", docID),
		zap.Int("chunks", len(chunks)),
		zap.Int("pending", pending),
	)
	return doc, nil
}

func (s *DocumentService) List(ctx context.Context) ([]model.Document, error) {
	return s.docs.List(ctx)
}

func (s *DocumentService) Delete(ctx context.Context, docID string) error {
	if _, err := s.docs.GetByID(ctx, docID); err != nil {
		return err
	}
	if err := s.chunks.DeleteByDoc(ctx, docID); err != nil {
		return err
	}
	return s.docs.Delete(ctx, docID)
}

func (s *DocumentService) OpenFile(ctx context.Context, docID string) (*model.Document, io.ReadCloser, error) {
	doc, err := s.docs.GetByID(ctx, docID)
	if err != nil {
		return nil, nil, err
	}
	file, err := s.store.Open(ctx, doc.FileKey)
	if err != nil {
		return nil, nil, err
	}
	return doc, file, nil
}

type nopSeekCloser struct {
	*bytes.Reader
}

func (nopSeekCloser) Close() error { return nil }
