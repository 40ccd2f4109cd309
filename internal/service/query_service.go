package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/lcodeee/manualqa/internal/ai"
	"github.com/lcodeee/manualqa/internal/model"
	appErr "github.com/lcodeee/manualqa/internal/pkg/errors"
	"github.com/lcodeee/manualqa/internal/repo"
)

// NoMaterialAnswer is the fixed response for a query that matched nothing.
const NoMaterialAnswer = "No relevant material was found in the indexed manuals for this question."

type QueryService struct {
	index        VectorIndex
	embedder     EmbedClient
	generator    AnswerClient
	defaultLimit int
	maxLimit     int
	contextMax   int
}

func NewQueryService(index VectorIndex, embedder EmbedClient, generator AnswerClient, defaultLimit, maxLimit, contextMax int) *QueryService {
	return &QueryService{
		index:        index,
		embedder:     embedder,
		generator:    generator,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
		contextMax:   contextMax,
	}
}

// Retrieve embeds the question, ranks matching segments and sanitizes every
// similarity score. Zero matches is a valid empty result, not an error.
func (s *QueryService) Retrieve(ctx context.Context, question, category string, k int) ([]model.ScoredSegment, error) {
	if strings.TrimSpace(question) == "" {
		return nil, appErr.ErrInvalid
	}
	if k <= 0 {
		k = s.defaultLimit
	}
	if k > s.maxLimit {
		k = s.maxLimit
	}
	vec, err := s.embedder.Embed(ctx, question, ai.TaskTypeQuery)
	if err != nil {
		return nil, appErr.AtStage(appErr.StageEmbed, fmt.Errorf("%w: %v", appErr.ErrProvider, err))
	}
	results, err := s.index.Search(ctx, vec, k, repo.SearchFilter{Category: category})
	if err != nil {
		return nil, appErr.AtStage(appErr.StageSearch, err)
	}
	for i := range results {
		results[i].Similarity = sanitizeScore(results[i].Similarity)
	}
	return results, nil
}

// Ask runs the full query pipeline: retrieve, compose a bounded context,
// generate a grounded answer. When retrieval matches nothing the fixed
// no-material answer is returned without a generation call.
func (s *QueryService) Ask(ctx context.Context, question, category string, k int) (*model.Answer, error) {
	results, err := s.Retrieve(ctx, question, category, k)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return &model.Answer{
			Question:    question,
			Text:        NoMaterialAnswer,
			Sources:     []model.AnswerSource{},
			ContextUsed: 0,
		}, nil
	}

	contextText, used := composeContext(results, s.contextMax)
	answer, err := s.generator.Answer(ctx, question, contextText)
	if err != nil {
		return nil, appErr.AtStage(appErr.StageGenerate, fmt.Errorf("%w: %v", appErr.ErrProvider, err))
	}

	sources := make([]model.AnswerSource, 0, used)
	for _, r := range results[:used] {
		sources = append(sources, model.AnswerSource{
			SegmentID:  r.ID,
			Title:      r.Meta.Title,
			Similarity: r.Similarity,
		})
	}
	logutil.GetLogger(ctx).Info("question answered",
		zap.Int("retrieved", len(results)),
		zap.Int("context_used", used),
	)
	return &model.Answer{
		Question:    question,
		Text:        answer,
		Sources:     sources,
		ContextUsed: used,
	}, nil
}

// sanitizeScore guarantees a finite similarity in [0, 1]. Degenerate vector
// comparisons can yield NaN or infinities; those carry no semantic judgement
// and are repaired to the defined minimum instead of propagating.
func sanitizeScore(score float64) float64 {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0
	}
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// composeContext concatenates whole segments in rank order, each with a
// provenance header, until the ceiling would be exceeded. Segments are
// dropped from the tail, never truncated, so the most relevant material is
// always intact. The top result is always included.
func composeContext(results []model.ScoredSegment, maxChars int) (string, int) {
	var blocks []string
	total := 0
	for _, r := range results {
		block := fmt.Sprintf("[Source: %s (part %d/%d)]\n%s",
			r.Meta.Title, r.Meta.ChunkIndex+1, r.Meta.TotalChunks, r.Content)
		size := utf8.RuneCountInString(block)
		if len(blocks) > 0 {
			size += 2 // blank-line separator
		}
		if total+size > maxChars && len(blocks) > 0 {
			break
		}
		blocks = append(blocks, block)
		total += size
	}
	return strings.Join(blocks, "\n\n"), len(blocks)
}
