package embedcache

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lcodeee/manualqa/internal/ai"
	"github.com/lcodeee/manualqa/internal/model"
)

type fakeCacheStore struct {
	items map[string]*model.EmbeddingCache
}

func newFakeCacheStore() *fakeCacheStore {
	return &fakeCacheStore{items: make(map[string]*model.EmbeddingCache)}
}

func (f *fakeCacheStore) storeKey(modelName, taskType, contentHash string) string {
	return modelName + "|" + taskType + "|" + contentHash
}

func (f *fakeCacheStore) Get(ctx context.Context, modelName, taskType, contentHash string) ([]float32, bool, error) {
	item, ok := f.items[f.storeKey(modelName, taskType, contentHash)]
	if !ok {
		return nil, false, nil
	}
	return item.Embedding, true, nil
}

func (f *fakeCacheStore) Save(ctx context.Context, item *model.EmbeddingCache) error {
	f.items[f.storeKey(item.ModelName, item.TaskType, item.ContentHash)] = item
	return nil
}

type namedEmbedder struct {
	name  string
	vec   []float32
	err   error
	calls int
}

func (n *namedEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	n.calls++
	if n.err != nil {
		return nil, n.err
	}
	return n.vec, nil
}

func (n *namedEmbedder) ModelName() string { return n.name }

func TestDBEmbedder_CachesAndHits(t *testing.T) {
	inner := &namedEmbedder{name: "model-a", vec: []float32{0.1, 0.2}}
	store := newFakeCacheStore()
	cached := WrapDBCacheToEmbedder(inner, store)

	first, err := cached.Embed(context.Background(), "hello", "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)
	require.Equal(t, []float32{0.1, 0.2}, first)
	require.Equal(t, 1, inner.calls)
	require.Len(t, store.items, 1)

	second, err := cached.Embed(context.Background(), "hello", "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, inner.calls)
}

func TestDBEmbedder_FailoverStoresUnderServingModel(t *testing.T) {
	primary := &namedEmbedder{name: "model-a", err: errors.New("unavailable")}
	fallback := &namedEmbedder{name: "model-b", vec: []float32{0.5}}
	group := ai.NewGroupEmbedder([]ai.EmbedderEntry{
		{Name: "primary", Embedder: primary},
		{Name: "fallback", Embedder: fallback},
	})
	store := newFakeCacheStore()
	cached := WrapDBCacheToEmbedder(group, store)

	vec, err := cached.Embed(context.Background(), "hello", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	require.Equal(t, []float32{0.5}, vec)

	// the vector came from the fallback, so it must be keyed to its model
	require.Len(t, store.items, 1)
	for _, item := range store.items {
		require.Equal(t, "model-b", item.ModelName)
	}

	// while the fallback keeps serving, subsequent lookups hit the cache
	_, err = cached.Embed(context.Background(), "hello", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	require.Equal(t, 1, fallback.calls)
}
