package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	resp  string
	err   error
	calls int
}

func (s *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.resp, nil
}

type stubEmbedder struct {
	name  string
	vec   []float32
	err   error
	calls int
}

func (s *stubEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.vec, nil
}

func (s *stubEmbedder) ModelName() string {
	if s.name != "" {
		return s.name
	}
	return "stub-embed"
}

func TestBuildAnswerPrompt_Grounded(t *testing.T) {
	prompt := BuildAnswerPrompt("how do I reset?", "[Source: M (part 1/1)]\nHold the button.")
	require.Contains(t, prompt, "ONLY the manual excerpts")
	require.Contains(t, prompt, "Hold the button.")
	require.Contains(t, prompt, "how do I reset?")
}

func TestBuildAnswerPrompt_NoGrounding(t *testing.T) {
	prompt := BuildAnswerPrompt("how do I reset?", "   ")
	require.Contains(t, prompt, "No grounding material was found")
	require.Contains(t, prompt, "Do not answer from general knowledge")
	require.Contains(t, prompt, "how do I reset?")
	require.NotContains(t, prompt, "MANUAL EXCERPTS")
}

func TestManagerEmbed_DimensionMismatchRejected(t *testing.T) {
	m := NewManager(nil, &stubEmbedder{vec: []float32{1, 2, 3}}, ManagerConfig{EmbedDim: 4})
	_, err := m.Embed(context.Background(), "text", TaskTypeDocument)
	require.Error(t, err)
	require.Contains(t, err.Error(), "dimension mismatch")
}

func TestManagerEmbed_MatchingDimension(t *testing.T) {
	m := NewManager(nil, &stubEmbedder{vec: []float32{1, 2, 3}}, ManagerConfig{EmbedDim: 3})
	vec, err := m.Embed(context.Background(), "text", TaskTypeDocument)
	require.NoError(t, err)
	require.Equal(t, []float32{1, 2, 3}, vec)
}

func TestManagerEmbed_RejectsEmptyAndOversized(t *testing.T) {
	embedder := &stubEmbedder{vec: []float32{1}}
	m := NewManager(nil, embedder, ManagerConfig{MaxInputChars: 10, EmbedDim: 1})

	_, err := m.Embed(context.Background(), "  ", TaskTypeDocument)
	require.Error(t, err)

	_, err = m.Embed(context.Background(), strings.Repeat("x", 11), TaskTypeDocument)
	require.Error(t, err)
	require.Equal(t, 0, embedder.calls)
}

func TestManagerAnswer_SingleAttempt(t *testing.T) {
	gen := &stubGenerator{err: errors.New("transient failure")}
	m := NewManager(gen, nil, ManagerConfig{})
	_, err := m.Answer(context.Background(), "q", "context")
	require.Error(t, err)
	require.Equal(t, 1, gen.calls)
}

func TestManagerAnswer_EmptyResponseIsError(t *testing.T) {
	m := NewManager(&stubGenerator{resp: "   "}, nil, ManagerConfig{})
	_, err := m.Answer(context.Background(), "q", "context")
	require.Error(t, err)
}

func TestManagerAnswer_TrimsResponse(t *testing.T) {
	m := NewManager(&stubGenerator{resp: "  the answer\n"}, nil, ManagerConfig{})
	got, err := m.Answer(context.Background(), "q", "context")
	require.NoError(t, err)
	require.Equal(t, "the answer", got)
}
