package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"medrag/internal/model"
	appErr "medrag/internal/pkg/errors"
)

type stubEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (s *stubEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.vector, nil
}

func (s *stubEmbedder) ModelName() string { return "stub-embed" }

type stubIndex struct {
	matches []model.ChunkMatch
	err     error
	calls   int
}

func (s *stubIndex) Search(ctx context.Context, vector []float32, topK int) ([]model.ChunkMatch, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if topK < len(s.matches) {
		return s.matches[:topK], nil
	}
	return s.matches, nil
}

type stubGenerator struct {
	output     string
	err        error
	calls      int
	lastPrompt string
}

func (s *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	s.calls++
	s.lastPrompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.output, nil
}

func newTestService(index *stubIndex, gen *stubGenerator) (*QueryService, *stubEmbedder) {
	embedder := &stubEmbedder{vector: []float32{0.1, 0.2, 0.3}}
	return NewQueryService(embedder, index, gen, 5, 0), embedder
}

func TestAnswer_NoEvidenceRefusalSkipsGeneration(t *testing.T) {
	index := &stubIndex{matches: []model.ChunkMatch{
		{ChunkID: "d-0", Text: "doctor only", Source: "a.pdf", Role: model.RoleDoctor, Score: 0.9},
		{ChunkID: "p-0", Text: "patient only", Source: "b.pdf", Role: model.RolePatient, Score: 0.8},
	}}
	gen := &stubGenerator{output: "should never be used"}
	svc, _ := newTestService(index, gen)

	answer, err := svc.Answer(context.Background(), "what is the dosage?", model.RoleNurse)
	require.NoError(t, err)
	require.Equal(t, RefusalMessage, answer.Answer)
	require.Empty(t, answer.Sources)
	require.Equal(t, 0, gen.calls)
}

func TestAnswer_SourceDeduplication(t *testing.T) {
	index := &stubIndex{matches: []model.ChunkMatch{
		{ChunkID: "p-0", Text: "rule one", Source: "policy.pdf", Role: model.RoleNurse, Score: 0.9},
		{ChunkID: "p-1", Text: "rule two", Source: "policy.pdf", Role: model.RoleNurse, Score: 0.8},
		{ChunkID: "p-2", Text: "rule three", Source: "policy.pdf", Role: model.RoleNurse, Score: 0.7},
	}}
	gen := &stubGenerator{output: "per policy, yes"}
	svc, _ := newTestService(index, gen)

	answer, err := svc.Answer(context.Background(), "is it allowed?", model.RoleNurse)
	require.NoError(t, err)
	require.Equal(t, []string{"policy.pdf"}, answer.Sources)
}

func TestAnswer_SourcesSorted(t *testing.T) {
	index := &stubIndex{matches: []model.ChunkMatch{
		{ChunkID: "z-0", Text: "zeta", Source: "zeta.pdf", Role: model.RoleOther, Score: 0.9},
		{ChunkID: "a-0", Text: "alpha", Source: "alpha.pdf", Role: model.RoleOther, Score: 0.8},
	}}
	gen := &stubGenerator{output: "combined"}
	svc, _ := newTestService(index, gen)

	answer, err := svc.Answer(context.Background(), "q", model.RoleOther)
	require.NoError(t, err)
	require.Equal(t, []string{"alpha.pdf", "zeta.pdf"}, answer.Sources)
}

func TestAnswer_FallbackPhrasePassthrough(t *testing.T) {
	index := &stubIndex{matches: []model.ChunkMatch{
		{ChunkID: "d-0", Text: "unrelated content", Source: "a.pdf", Role: model.RoleDoctor, Score: 0.9},
	}}
	gen := &stubGenerator{output: FallbackPhrase}
	svc, _ := newTestService(index, gen)

	answer, err := svc.Answer(context.Background(), "what is the meaning of life?", model.RoleDoctor)
	require.NoError(t, err)
	require.Equal(t, FallbackPhrase, answer.Answer)
}

func TestAnswer_PromptContract(t *testing.T) {
	index := &stubIndex{matches: []model.ChunkMatch{
		{ChunkID: "d-0", Text: "visible passage", Source: "a.pdf", Role: model.RoleDoctor, Score: 0.9},
		{ChunkID: "p-0", Text: "hidden passage", Source: "b.pdf", Role: model.RolePatient, Score: 0.8},
	}}
	gen := &stubGenerator{output: "answer"}
	svc, _ := newTestService(index, gen)

	_, err := svc.Answer(context.Background(), "the question", model.RoleDoctor)
	require.NoError(t, err)
	require.Contains(t, gen.lastPrompt, "visible passage")
	require.NotContains(t, gen.lastPrompt, "hidden passage")
	require.Contains(t, gen.lastPrompt, FallbackPhrase)
	require.Contains(t, gen.lastPrompt, "the question")
}

func TestAnswer_EmbeddingFailure(t *testing.T) {
	index := &stubIndex{}
	gen := &stubGenerator{}
	svc, embedder := newTestService(index, gen)
	embedder.err = context.DeadlineExceeded

	_, err := svc.Answer(context.Background(), "q", model.RoleDoctor)
	require.ErrorIs(t, err, appErr.ErrEmbeddingUnavailable)
	require.Equal(t, 0, index.calls)
	require.Equal(t, 0, gen.calls)
}

func TestAnswer_IndexFailure(t *testing.T) {
	index := &stubIndex{err: context.DeadlineExceeded}
	gen := &stubGenerator{}
	svc, _ := newTestService(index, gen)

	_, err := svc.Answer(context.Background(), "q", model.RoleDoctor)
	require.ErrorIs(t, err, appErr.ErrIndexUnavailable)
	require.Equal(t, 0, gen.calls)
}

func TestAnswer_GenerationFailure(t *testing.T) {
	index := &stubIndex{matches: []model.ChunkMatch{
		{ChunkID: "d-0", Text: "evidence", Source: "a.pdf", Role: model.RoleDoctor, Score: 0.9},
	}}
	gen := &stubGenerator{err: context.DeadlineExceeded}
	svc, _ := newTestService(index, gen)

	answer, err := svc.Answer(context.Background(), "q", model.RoleDoctor)
	require.ErrorIs(t, err, appErr.ErrGenerationFailed)
	require.Nil(t, answer)
}

func TestAnswer_EmptyQuestionRejected(t *testing.T) {
	svc, _ := newTestService(&stubIndex{}, &stubGenerator{})
	_, err := svc.Answer(context.Background(), "   ", model.RoleDoctor)
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestAnswer_Idempotent(t *testing.T) {
	index := &stubIndex{matches: []model.ChunkMatch{
		{ChunkID: "d-0", Text: "stable evidence", Source: "a.pdf", Role: model.RoleDoctor, Score: 0.9},
	}}
	gen := &stubGenerator{output: "stable answer"}
	svc, _ := newTestService(index, gen)

	first, err := svc.Answer(context.Background(), "q", model.RoleDoctor)
	require.NoError(t, err)
	second, err := svc.Answer(context.Background(), "q", model.RoleDoctor)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestAnswer_EndToEndScenario(t *testing.T) {
	index := &stubIndex{matches: []model.ChunkMatch{
		{ChunkID: "g-0", Text: "Aspirin dosage is 325mg", Source: "drug_guide.pdf", Role: model.RoleDoctor, Score: 0.95},
	}}
	gen := &stubGenerator{output: "The aspirin dosage is 325mg."}
	svc, _ := newTestService(index, gen)

	answer, err := svc.Answer(context.Background(), "What is the aspirin dosage?", model.RoleDoctor)
	require.NoError(t, err)
	require.True(t, strings.Contains(answer.Answer, "325mg"))
	require.Equal(t, []string{"drug_guide.pdf"}, answer.Sources)
	require.Contains(t, gen.lastPrompt, "Aspirin dosage is 325mg")

	answer, err = svc.Answer(context.Background(), "What is the aspirin dosage?", model.RoleNurse)
	require.NoError(t, err)
	require.Equal(t, RefusalMessage, answer.Answer)
	require.Empty(t, answer.Sources)
	require.Equal(t, 1, gen.calls)
}
