package service

import (
	"context"

	"github.com/lcodeee/manualqa/internal/model"
	"github.com/lcodeee/manualqa/internal/repo"
)

// VectorIndex is the persistence surface the pipeline needs. SegmentRepo is
// the production implementation; tests substitute an in-memory one.
type VectorIndex interface {
	Insert(ctx context.Context, seg *model.Segment) (int64, error)
	UpdateEmbedding(ctx context.Context, id int64, vec []float32) error
	Search(ctx context.Context, vec []float32, k int, filter repo.SearchFilter) ([]model.ScoredSegment, error)
	ListPendingEmbedding(ctx context.Context, limit int) ([]model.Segment, error)
}

// EmbedClient embeds one text with a retrieval task type. Implemented by
// ai.Manager, which also enforces the configured dimension.
type EmbedClient interface {
	Embed(ctx context.Context, text string, taskType string) ([]float32, error)
}

// AnswerClient produces the grounded answer for a composed context.
type AnswerClient interface {
	Answer(ctx context.Context, question string, contextText string) (string, error)
}
