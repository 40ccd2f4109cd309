package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lcodeee/manualqa/internal/model"
	appErr "github.com/lcodeee/manualqa/internal/pkg/errors"
	"github.com/lcodeee/manualqa/internal/repo"
)

type fakeIndex struct {
	segments    map[int64]*model.Segment
	nextID      int64
	results     []model.ScoredSegment
	insertErr   error
	searchErr   error
	lastKUsed   int
	lastFilter  repo.SearchFilter
	pendingErrs map[int64]error
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{segments: map[int64]*model.Segment{}}
}

func (f *fakeIndex) Insert(ctx context.Context, seg *model.Segment) (int64, error) {
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	f.nextID++
	copied := *seg
	copied.ID = f.nextID
	f.segments[f.nextID] = &copied
	return f.nextID, nil
}

func (f *fakeIndex) UpdateEmbedding(ctx context.Context, id int64, vec []float32) error {
	if err := f.pendingErrs[id]; err != nil {
		return err
	}
	seg, ok := f.segments[id]
	if !ok {
		return appErr.ErrNotFound
	}
	seg.Embedding = vec
	return nil
}

func (f *fakeIndex) Search(ctx context.Context, vec []float32, k int, filter repo.SearchFilter) ([]model.ScoredSegment, error) {
	f.lastKUsed = k
	f.lastFilter = filter
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if len(f.results) > k {
		return f.results[:k], nil
	}
	return f.results, nil
}

func (f *fakeIndex) ListPendingEmbedding(ctx context.Context, limit int) ([]model.Segment, error) {
	var out []model.Segment
	for id := int64(1); id <= f.nextID && len(out) < limit; id++ {
		if seg, ok := f.segments[id]; ok && seg.Embedding == nil {
			out = append(out, *seg)
		}
	}
	return out, nil
}

type fakeEmbedder struct {
	vec  []float32
	err  error
	fail map[string]error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if err := f.fail[text]; err != nil {
		return nil, err
	}
	if f.vec != nil {
		return f.vec, nil
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type fakeGenerator struct {
	answer  string
	err     error
	calls   int
	lastCtx string
}

func (f *fakeGenerator) Answer(ctx context.Context, question string, contextText string) (string, error) {
	f.calls++
	f.lastCtx = contextText
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func scored(id int64, title string, part, total int, content string, sim float64) model.ScoredSegment {
	return model.ScoredSegment{
		Segment: model.Segment{
			ID:      id,
			Content: content,
			Meta: model.SegmentMetadata{
				Title:       title,
				ChunkIndex:  part,
				TotalChunks: total,
			},
		},
		Similarity: sim,
	}
}

func TestSanitizeScore(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"nan", math.NaN(), 0},
		{"pos inf", math.Inf(1), 0},
		{"neg inf", math.Inf(-1), 0},
		{"below range", -0.25, 0},
		{"above range", 1.5, 1},
		{"in range", 0.42, 0.42},
		{"zero", 0, 0},
		{"one", 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, sanitizeScore(tt.in))
		})
	}
}

func TestRetrieve_SanitizesScores(t *testing.T) {
	index := newFakeIndex()
	index.results = []model.ScoredSegment{
		scored(1, "m", 0, 1, "a", math.NaN()),
		scored(2, "m", 0, 1, "b", 1.7),
		scored(3, "m", 0, 1, "c", 0.6),
	}
	svc := NewQueryService(index, &fakeEmbedder{}, &fakeGenerator{answer: "ok"}, 5, 20, 1000)

	results, err := svc.Retrieve(context.Background(), "how", "", 5)
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Equal(t, float64(0), results[0].Similarity)
	require.Equal(t, float64(1), results[1].Similarity)
	require.Equal(t, 0.6, results[2].Similarity)
}

func TestRetrieve_LimitDefaultsAndClamp(t *testing.T) {
	index := newFakeIndex()
	svc := NewQueryService(index, &fakeEmbedder{}, &fakeGenerator{answer: "ok"}, 5, 20, 1000)

	_, err := svc.Retrieve(context.Background(), "q", "", 0)
	require.NoError(t, err)
	require.Equal(t, 5, index.lastKUsed)

	_, err = svc.Retrieve(context.Background(), "q", "", 100)
	require.NoError(t, err)
	require.Equal(t, 20, index.lastKUsed)
}

func TestRetrieve_EmptyQuestion(t *testing.T) {
	svc := NewQueryService(newFakeIndex(), &fakeEmbedder{}, &fakeGenerator{}, 5, 20, 1000)
	_, err := svc.Retrieve(context.Background(), "   ", "", 5)
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestRetrieve_CategoryFilterForwarded(t *testing.T) {
	index := newFakeIndex()
	svc := NewQueryService(index, &fakeEmbedder{}, &fakeGenerator{}, 5, 20, 1000)
	_, err := svc.Retrieve(context.Background(), "q", "printer", 5)
	require.NoError(t, err)
	require.Equal(t, "printer", index.lastFilter.Category)
}

func TestRetrieve_EmbedFailure(t *testing.T) {
	svc := NewQueryService(newFakeIndex(), &fakeEmbedder{err: errors.New("quota exceeded")}, &fakeGenerator{}, 5, 20, 1000)
	_, err := svc.Retrieve(context.Background(), "q", "", 5)
	require.ErrorIs(t, err, appErr.ErrProvider)
	require.Equal(t, appErr.StageEmbed, appErr.StageOf(err))
}

func TestRetrieve_SearchFailure(t *testing.T) {
	index := newFakeIndex()
	index.searchErr = errors.New("connection refused")
	svc := NewQueryService(index, &fakeEmbedder{}, &fakeGenerator{}, 5, 20, 1000)
	_, err := svc.Retrieve(context.Background(), "q", "", 5)
	require.Error(t, err)
	require.Equal(t, appErr.StageSearch, appErr.StageOf(err))
}

func TestAsk_EmptyRetrievalShortCircuits(t *testing.T) {
	gen := &fakeGenerator{answer: "should not be used"}
	svc := NewQueryService(newFakeIndex(), &fakeEmbedder{}, gen, 5, 20, 1000)

	answer, err := svc.Ask(context.Background(), "anything?", "", 5)
	require.NoError(t, err)
	require.Equal(t, NoMaterialAnswer, answer.Text)
	require.NotNil(t, answer.Sources)
	require.Empty(t, answer.Sources)
	require.Equal(t, 0, answer.ContextUsed)
	require.Equal(t, 0, gen.calls)
}

func TestAsk_GroundedAnswer(t *testing.T) {
	index := newFakeIndex()
	index.results = []model.ScoredSegment{
		scored(7, "Router Manual", 0, 3, "Reset via the pinhole button.", 0.91),
		scored(9, "Router Manual", 1, 3, "Hold for ten seconds.", 0.84),
	}
	gen := &fakeGenerator{answer: "Use the pinhole button."}
	svc := NewQueryService(index, &fakeEmbedder{}, gen, 5, 20, 1000)

	answer, err := svc.Ask(context.Background(), "how do I reset?", "", 5)
	require.NoError(t, err)
	require.Equal(t, "Use the pinhole button.", answer.Text)
	require.Equal(t, "how do I reset?", answer.Question)
	require.Equal(t, 2, answer.ContextUsed)
	require.Len(t, answer.Sources, 2)
	require.Equal(t, int64(7), answer.Sources[0].SegmentID)
	require.Equal(t, 0.91, answer.Sources[0].Similarity)
	require.Contains(t, gen.lastCtx, "[Source: Router Manual (part 1/3)]")
	require.Contains(t, gen.lastCtx, "Reset via the pinhole button.")
}

func TestAsk_SourcesCoverOnlyIncludedSegments(t *testing.T) {
	index := newFakeIndex()
	index.results = []model.ScoredSegment{
		scored(1, "A", 0, 1, "first segment content", 0.9),
		scored(2, "B", 0, 1, "second segment content", 0.8),
		scored(3, "C", 0, 1, "third segment content", 0.7),
	}
	gen := &fakeGenerator{answer: "ok"}
	// ceiling fits the first block only
	svc := NewQueryService(index, &fakeEmbedder{}, gen, 5, 20, 40)

	answer, err := svc.Ask(context.Background(), "q", "", 5)
	require.NoError(t, err)
	require.Equal(t, 1, answer.ContextUsed)
	require.Len(t, answer.Sources, 1)
	require.Equal(t, int64(1), answer.Sources[0].SegmentID)
}

func TestAsk_GenerateFailure(t *testing.T) {
	index := newFakeIndex()
	index.results = []model.ScoredSegment{scored(1, "A", 0, 1, "content", 0.9)}
	svc := NewQueryService(index, &fakeEmbedder{}, &fakeGenerator{err: errors.New("model overloaded")}, 5, 20, 1000)

	_, err := svc.Ask(context.Background(), "q", "", 5)
	require.ErrorIs(t, err, appErr.ErrProvider)
	require.Equal(t, appErr.StageGenerate, appErr.StageOf(err))
}

func TestComposeContext_DropsWholeSegmentsFromTail(t *testing.T) {
	results := []model.ScoredSegment{
		scored(1, "M", 0, 2, "alpha alpha alpha", 0.9),
		scored(2, "M", 1, 2, "beta beta beta", 0.8),
		scored(3, "M", 0, 1, "gamma gamma gamma", 0.7),
	}
	full, used := composeContext(results, 10000)
	require.Equal(t, 3, used)
	require.Contains(t, full, "alpha")
	require.Contains(t, full, "gamma")

	// ceiling large enough for two blocks but not three
	blockLen := len("[Source: M (part 1/2)]\nalpha alpha alpha")
	partial, used := composeContext(results, 2*blockLen+10)
	require.Equal(t, 2, used)
	require.Contains(t, partial, "beta")
	require.NotContains(t, partial, "gamma")
}

func TestComposeContext_TopResultAlwaysIncluded(t *testing.T) {
	results := []model.ScoredSegment{
		scored(1, "M", 0, 1, "this content alone is far beyond the tiny ceiling", 0.9),
	}
	text, used := composeContext(results, 5)
	require.Equal(t, 1, used)
	require.Contains(t, text, "this content alone")
}

func TestComposeContext_SeparatorBetweenBlocks(t *testing.T) {
	results := []model.ScoredSegment{
		scored(1, "A", 0, 1, "one", 0.9),
		scored(2, "B", 0, 1, "two", 0.8),
	}
	text, used := composeContext(results, 10000)
	require.Equal(t, 2, used)
	require.Equal(t, "[Source: A (part 1/1)]\none\n\n[Source: B (part 1/1)]\ntwo", text)
}
