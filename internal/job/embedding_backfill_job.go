package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/lcodeee/manualqa/internal/service"
)

// EmbeddingBackfillJob re-embeds segments whose embedding is still NULL,
// typically left behind by provider failures during ingestion.
type EmbeddingBackfillJob struct {
	ingest *service.IngestService
	batch  int
}

func NewEmbeddingBackfillJob(ingest *service.IngestService, batch int) *EmbeddingBackfillJob {
	return &EmbeddingBackfillJob{ingest: ingest, batch: batch}
}

func (j *EmbeddingBackfillJob) Name() string {
	return "embedding_backfill"
}

func (j *EmbeddingBackfillJob) Run(ctx context.Context) error {
	if j.ingest == nil {
		return nil
	}
	batch := j.batch
	if batch <= 0 {
		batch = 50
	}
	repaired, err := j.ingest.BackfillEmbeddings(ctx, batch)
	if err != nil {
		return err
	}
	if repaired > 0 {
		logutil.GetLogger(ctx).Info("embeddings backfilled", zap.Int("repaired", repaired))
	}
	return nil
}
