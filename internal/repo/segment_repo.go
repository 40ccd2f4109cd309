package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/didi/gendry/builder"
	"github.com/pgvector/pgvector-go"

	"github.com/lcodeee/manualqa/internal/model"
	"github.com/lcodeee/manualqa/internal/pkg/dbutil"
	appErr "github.com/lcodeee/manualqa/internal/pkg/errors"
)

// SearchFilter is an exact-match predicate over segment metadata.
type SearchFilter struct {
	Category string
	Type     string
}

// SegmentRepo is the vector index: (content, embedding, metadata) rows in
// Postgres with pgvector cosine ranking. Every vector write is checked
// against the configured dimension; a mismatch is an error, not a warning.
type SegmentRepo struct {
	db  *sql.DB
	dim int
}

func NewSegmentRepo(db *sql.DB, dim int) *SegmentRepo {
	return &SegmentRepo{db: db, dim: dim}
}

func (r *SegmentRepo) checkDim(vec []float32) error {
	if len(vec) != r.dim {
		return fmt.Errorf("vector dimension mismatch: got %d, want %d", len(vec), r.dim)
	}
	return nil
}

// Insert stores a segment and returns its assigned id. A nil embedding is
// allowed; such segments are invisible to Search until the ingest fan-out or
// the backfill job embeds them.
func (r *SegmentRepo) Insert(ctx context.Context, seg *model.Segment) (int64, error) {
	meta, err := json.Marshal(seg.Meta)
	if err != nil {
		return 0, err
	}
	var embedding interface{}
	if seg.Embedding != nil {
		if err := r.checkDim(seg.Embedding); err != nil {
			return 0, err
		}
		embedding = pgvector.NewVector(seg.Embedding)
	}
	const query = `
		INSERT INTO segments (content, embedding, metadata, ctime)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	var id int64
	if err := r.db.QueryRowContext(ctx, query, seg.Content, embedding, meta, seg.Ctime).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *SegmentRepo) UpdateEmbedding(ctx context.Context, id int64, vec []float32) error {
	if err := r.checkDim(vec); err != nil {
		return err
	}
	const query = `UPDATE segments SET embedding = $1 WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, pgvector.NewVector(vec), id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

// Search ranks segments by cosine similarity to the query vector, restricted
// to the filter and to rows with a non-null embedding. Ties are broken by
// insertion order (lower id first). Fewer than k matches is not an error;
// zero matches returns an empty slice.
func (r *SegmentRepo) Search(ctx context.Context, vec []float32, k int, filter SearchFilter) ([]model.ScoredSegment, error) {
	if err := r.checkDim(vec); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}
	query := `
		SELECT id, content, metadata, ctime, 1 - (embedding <=> $1::vector) AS similarity
		FROM segments
		WHERE embedding IS NOT NULL
	`
	args := []interface{}{pgvector.NewVector(vec)}
	if filter.Type != "" {
		args = append(args, filter.Type)
		query += fmt.Sprintf(" AND metadata->>'type' = $%d", len(args))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		query += fmt.Sprintf(" AND metadata->>'category' = $%d", len(args))
	}
	args = append(args, k)
	query += fmt.Sprintf(" ORDER BY embedding <=> $1::vector, id LIMIT $%d", len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []model.ScoredSegment
	for rows.Next() {
		var item model.ScoredSegment
		var meta []byte
		if err := rows.Scan(&item.ID, &item.Content, &meta, &item.Ctime, &item.Similarity); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(meta, &item.Meta); err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	return results, rows.Err()
}

// ListPendingEmbedding returns segments left without an embedding by a
// partial ingestion, oldest first.
func (r *SegmentRepo) ListPendingEmbedding(ctx context.Context, limit int) ([]model.Segment, error) {
	const query = `
		SELECT id, content, metadata, ctime
		FROM segments
		WHERE embedding IS NULL
		ORDER BY id
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSegments(rows)
}

func (r *SegmentRepo) ListByCategory(ctx context.Context, category string, limit, offset int) ([]model.Segment, error) {
	where := map[string]interface{}{
		"metadata->>'category'": category,
		"_orderby":              "ctime desc, id desc",
		"_limit":                []uint{uint(offset), uint(limit)},
	}
	sqlStr, args, err := builder.BuildSelect("segments", where, []string{"id", "content", "metadata", "ctime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSegments(rows)
}

func (r *SegmentRepo) ListByDateRange(ctx context.Context, start, end int64, limit int) ([]model.Segment, error) {
	where := map[string]interface{}{
		"ctime >=": start,
		"ctime <":  end,
		"_orderby": "ctime desc, id desc",
		"_limit":   []uint{uint(limit)},
	}
	sqlStr, args, err := builder.BuildSelect("segments", where, []string{"id", "content", "metadata", "ctime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSegments(rows)
}

func scanSegments(rows *sql.Rows) ([]model.Segment, error) {
	var segments []model.Segment
	for rows.Next() {
		var seg model.Segment
		var meta []byte
		if err := rows.Scan(&seg.ID, &seg.Content, &meta, &seg.Ctime); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(meta, &seg.Meta); err != nil {
			return nil, err
		}
		segments = append(segments, seg)
	}
	return segments, rows.Err()
}
