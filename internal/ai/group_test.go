package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGroupGenerator_Failover(t *testing.T) {
	broken := &stubGenerator{err: errors.New("unavailable")}
	healthy := &stubGenerator{resp: "answer"}
	g := NewGroupGenerator([]GeneratorEntry{
		{Name: "primary", Generator: broken},
		{Name: "fallback", Generator: healthy},
	})

	got, err := g.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	require.Equal(t, "answer", got)
	require.Equal(t, 1, broken.calls)
	require.Equal(t, 1, healthy.calls)
}

func TestGroupGenerator_AllFail(t *testing.T) {
	lastErr := errors.New("second down")
	g := NewGroupGenerator([]GeneratorEntry{
		{Name: "a", Generator: &stubGenerator{err: errors.New("first down")}},
		{Name: "b", Generator: &stubGenerator{err: lastErr}},
	})

	_, err := g.Generate(context.Background(), "prompt")
	require.ErrorIs(t, err, lastErr)
}

func TestGroupGenerator_Empty(t *testing.T) {
	require.Nil(t, NewGroupGenerator(nil))
}

func TestGroupEmbedder_Failover(t *testing.T) {
	broken := &stubEmbedder{err: errors.New("unavailable")}
	healthy := &stubEmbedder{vec: []float32{0.5}}
	e := NewGroupEmbedder([]EmbedderEntry{
		{Name: "primary", Embedder: broken},
		{Name: "fallback", Embedder: healthy},
	})

	vec, err := e.Embed(context.Background(), "text", TaskTypeQuery)
	require.NoError(t, err)
	require.Equal(t, []float32{0.5}, vec)
}

func TestGroupEmbedder_ModelName(t *testing.T) {
	e := NewGroupEmbedder([]EmbedderEntry{
		{Name: "primary", Embedder: &stubEmbedder{}},
	})
	require.Equal(t, "stub-embed", e.ModelName())
}

func TestGroupEmbedder_ModelNameFollowsServingMember(t *testing.T) {
	primary := &stubEmbedder{name: "model-a", err: errors.New("unavailable")}
	fallback := &stubEmbedder{name: "model-b", vec: []float32{0.5}}
	e := NewGroupEmbedder([]EmbedderEntry{
		{Name: "primary", Embedder: primary},
		{Name: "fallback", Embedder: fallback},
	})

	// no call served yet, report the first member
	require.Equal(t, "model-a", e.ModelName())

	_, err := e.Embed(context.Background(), "text", TaskTypeQuery)
	require.NoError(t, err)
	require.Equal(t, "model-b", e.ModelName())

	// primary recovers, the next call is served there again
	primary.err = nil
	primary.vec = []float32{0.9}
	_, err = e.Embed(context.Background(), "text", TaskTypeQuery)
	require.NoError(t, err)
	require.Equal(t, "model-a", e.ModelName())
}
