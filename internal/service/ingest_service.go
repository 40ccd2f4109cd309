package service

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lcodeee/manualqa/internal/ai"
	"github.com/lcodeee/manualqa/internal/filestore"
	"github.com/lcodeee/manualqa/internal/ingest"
	"github.com/lcodeee/manualqa/internal/model"
	appErr "github.com/lcodeee/manualqa/internal/pkg/errors"
	"github.com/lcodeee/manualqa/internal/pkg/timeutil"
)

type IngestService struct {
	index           VectorIndex
	embedder        EmbedClient
	files           filestore.Store
	chunkMaxChars   int
	maxSegmentChars int
	concurrency     int
}

func NewIngestService(index VectorIndex, embedder EmbedClient, files filestore.Store, chunkMaxChars, maxSegmentChars, concurrency int) *IngestService {
	return &IngestService{
		index:           index,
		embedder:        embedder,
		files:           files,
		chunkMaxChars:   chunkMaxChars,
		maxSegmentChars: maxSegmentChars,
		concurrency:     concurrency,
	}
}

// IngestManual runs the full ingestion pipeline for one uploaded manual:
// extract, normalize, chunk, store every segment with a deterministic
// chunk_index, then embed the segments with a bounded-concurrency fan-out.
// Embedding failures leave NULL-embedding segments in place (picked up later
// by the backfill job); the result reports embedded versus expected counts.
func (s *IngestService) IngestManual(ctx context.Context, title, category, filename string, data []byte) (*model.IngestResult, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("title", title), zap.String("file", filename))

	raw, err := s.extract(filename, data)
	if err != nil {
		return nil, appErr.AtStage(appErr.StageExtract, err)
	}
	text := ingest.Normalize(raw)
	if text == "" {
		return nil, appErr.AtStage(appErr.StageExtract, appErr.ErrNoContent)
	}
	chunks, err := ingest.Chunk(text, s.chunkMaxChars)
	if err != nil {
		return nil, appErr.AtStage(appErr.StageChunk, err)
	}

	fileKey := s.archive(ctx, filename, data)

	// chunk_index is assigned here, before the embed fan-out, so ordering is
	// deterministic regardless of completion order.
	now := timeutil.NowUnix()
	ids := make([]int64, 0, len(chunks))
	for i, chunk := range chunks {
		seg := &model.Segment{
			Content: chunk,
			Meta: model.SegmentMetadata{
				Title:          title,
				Category:       category,
				Type:           model.SegmentTypeManual,
				SourceFilename: filename,
				FileKey:        fileKey,
				ChunkIndex:     i,
				TotalChunks:    len(chunks),
			},
			Ctime: now,
		}
		id, err := s.index.Insert(ctx, seg)
		if err != nil {
			return nil, appErr.AtStage(appErr.StageStore, err)
		}
		ids = append(ids, id)
	}

	var embedded atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range chunks {
		id, content := ids[i], chunks[i]
		g.Go(func() error {
			vec, err := s.embedder.Embed(gctx, content, ai.TaskTypeDocument)
			if err != nil {
				logger.Warn("embed chunk failed", zap.Int64("segment_id", id), zap.Error(err))
				return nil
			}
			if err := s.index.UpdateEmbedding(gctx, id, vec); err != nil {
				logger.Warn("store embedding failed", zap.Int64("segment_id", id), zap.Error(err))
				return nil
			}
			embedded.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	result := &model.IngestResult{
		SegmentIDs:     ids,
		ChunkCount:     len(chunks),
		EmbeddedChunks: int(embedded.Load()),
		TotalChars:     utf8.RuneCountInString(text),
	}
	logger.Info("manual ingested",
		zap.Int("chunks", result.ChunkCount),
		zap.Int("embedded", result.EmbeddedChunks),
		zap.Int("chars", result.TotalChars),
	)
	return result, nil
}

// AddDocument ingests one free-text document as a single segment, embedding
// inline. Unlike manual ingestion there is no partial mode: an embedding
// failure rejects the document.
func (s *IngestService) AddDocument(ctx context.Context, content, title, category, segType string) (int64, error) {
	text := ingest.Normalize(content)
	if text == "" {
		return 0, appErr.AtStage(appErr.StageExtract, appErr.ErrNoContent)
	}
	if utf8.RuneCountInString(text) > s.maxSegmentChars {
		return 0, appErr.ErrInvalid
	}
	if segType == "" {
		segType = model.SegmentTypeDocument
	}
	vec, err := s.embedder.Embed(ctx, text, ai.TaskTypeDocument)
	if err != nil {
		return 0, appErr.AtStage(appErr.StageEmbed, err)
	}
	id, err := s.index.Insert(ctx, &model.Segment{
		Content:   text,
		Embedding: vec,
		Meta: model.SegmentMetadata{
			Title:       title,
			Category:    category,
			Type:        segType,
			ChunkIndex:  0,
			TotalChunks: 1,
		},
		Ctime: timeutil.NowUnix(),
	})
	if err != nil {
		return 0, appErr.AtStage(appErr.StageStore, err)
	}
	return id, nil
}

// BackfillEmbeddings embeds up to limit segments whose embedding is still
// NULL. Called by the scheduler; returns the number repaired.
func (s *IngestService) BackfillEmbeddings(ctx context.Context, limit int) (int, error) {
	pending, err := s.index.ListPendingEmbedding(ctx, limit)
	if err != nil {
		return 0, err
	}
	logger := logutil.GetLogger(ctx)
	repaired := 0
	for _, seg := range pending {
		vec, err := s.embedder.Embed(ctx, seg.Content, ai.TaskTypeDocument)
		if err != nil {
			logger.Warn("backfill embed failed", zap.Int64("segment_id", seg.ID), zap.Error(err))
			continue
		}
		if err := s.index.UpdateEmbedding(ctx, seg.ID, vec); err != nil {
			logger.Warn("backfill store failed", zap.Int64("segment_id", seg.ID), zap.Error(err))
			continue
		}
		repaired++
	}
	return repaired, nil
}

func (s *IngestService) extract(filename string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return ingest.ExtractPDF(bytes.NewReader(data), int64(len(data)))
	case ".md", ".markdown":
		return ingest.ExtractMarkdown(data), nil
	default:
		return "", appErr.ErrInvalid
	}
}

// archive keeps the original upload for later download. Best effort: a
// filestore failure degrades provenance, not ingestion.
func (s *IngestService) archive(ctx context.Context, filename string, data []byte) string {
	if s.files == nil {
		return ""
	}
	key := uuid.NewString() + strings.ToLower(filepath.Ext(filename))
	r := nopReadSeekCloser{bytes.NewReader(data)}
	if err := s.files.Save(ctx, key, r, int64(len(data))); err != nil {
		logutil.GetLogger(ctx).Warn("archive upload failed", zap.String("key", key), zap.Error(err))
		return ""
	}
	return key
}

type nopReadSeekCloser struct {
	*bytes.Reader
}

func (nopReadSeekCloser) Close() error { return nil }
