package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"medrag/internal/ai"
	"medrag/internal/model"
	appErr "medrag/internal/pkg/errors"
)

const (
	// RefusalMessage is returned without any generation call when no chunk
	// visible to the requester's role survived filtering.
	RefusalMessage = "No relevant information found for your role. Please contact an administrator."

	// FallbackPhrase is the verbatim phrase the generator is instructed to
	// emit when the context does not contain the answer. Callers pattern-match
	// on it, so it must never be reworded.
	FallbackPhrase = "I don't have enough information to answer this question based on the available documents."

	contextSeparator = "\n\n"

	queryTaskType = "RETRIEVAL_QUERY"
)

const answerPromptTemplate = `You are a helpful healthcare assistant. Answer the following question ONLY based on the provided context.
If the answer cannot be found in the context, say "%s"
Do NOT make up information or use general knowledge.

Question: %s

Context: %s

Answer:`

// VectorSearcher is the read-only port to the vector index.
type VectorSearcher interface {
	Search(ctx context.Context, vector []float32, topK int) ([]model.ChunkMatch, error)
}

// QueryService runs the retrieval-augmented answer pipeline: embed the
// question, pull topK nearest chunks, drop everything outside the requester's
// role, then generate an answer grounded in what is left. Stateless per
// request.
type QueryService struct {
	embedder  ai.IEmbedder
	index     VectorSearcher
	generator ai.IGenerator
	topK      int
	timeout   time.Duration
}

func NewQueryService(embedder ai.IEmbedder, index VectorSearcher, generator ai.IGenerator, topK int, timeout time.Duration) *QueryService {
	if topK <= 0 {
		topK = 5
	}
	return &QueryService{
		embedder:  embedder,
		index:     index,
		generator: generator,
		topK:      topK,
		timeout:   timeout,
	}
}

func (s *QueryService) Answer(ctx context.Context, question, role string) (*model.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, appErr.ErrInvalid
	}
	logger := logutil.GetLogger(ctx).With(zap.String("role", role))

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	vector, err := s.embedder.Embed(ctx, question, queryTaskType)
	if err != nil {
		logger.Error("embed query failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", appErr.ErrEmbeddingUnavailable, err)
	}

	matches, err := s.index.Search(ctx, vector, s.topK)
	if err != nil {
		logger.Error("index search failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", appErr.ErrIndexUnavailable, err)
	}

	filtered := filterByRole(matches, role)
	logger.Debug("retrieval done",
		zap.Int("candidates", len(matches)),
		zap.Int("visible", len(filtered)),
	)

	if len(filtered) == 0 {
		return &model.Answer{Answer: RefusalMessage, Sources: []string{}}, nil
	}

	contexts := make([]string, 0, len(filtered))
	sourceSet := make(map[string]struct{}, len(filtered))
	for _, match := range filtered {
		contexts = append(contexts, match.Text)
		if match.Source != "" {
			sourceSet[match.Source] = struct{}{}
		}
	}

	prompt := fmt.Sprintf(answerPromptTemplate, FallbackPhrase, question, strings.Join(contexts, contextSeparator))
	answer, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		logger.Error("answer generation failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", appErr.ErrGenerationFailed, err)
	}

	sources := make([]string, 0, len(sourceSet))
	for source := range sourceSet {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	return &model.Answer{Answer: answer, Sources: sources}, nil
}
