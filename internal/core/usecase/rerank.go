package usecase

import (
	"context"
	"sort"

	"github.com/agentrag/reasoning-engine/internal/core/domain"
	"github.com/agentrag/reasoning-engine/internal/core/ports"
)

const (
	minContextSize = 1
	maxContextSize = 20
)

func clampContextSize(size int) int {
	if size <= 0 {
		return 5
	}
	if size < minContextSize {
		return minContextSize
	}
	if size > maxContextSize {
		return maxContextSize
	}
	return size
}

// rerankCandidates scores each (query, candidate) pair with the
// cross-encoder and returns the final context, at most size chunks.
// Scoring runs on the bounded pool; any failure (model down, pool
// saturated, score count mismatch) falls back to the fusion order with
// skipped=true so the caller can flag the response.
func rerankCandidates(
	ctx context.Context,
	scorer ports.RelevanceScorer,
	pool ports.ScoringPool,
	query string,
	fused []domain.FusedCandidate,
	size int,
) ([]domain.RerankedCandidate, bool) {
	size = clampContextSize(size)
	if len(fused) == 0 {
		return nil, false
	}

	texts := make([]string, len(fused))
	for i, fc := range fused {
		texts[i] = fc.Chunk.Content
	}

	var scores []float64
	err := pool.Do(ctx, func(poolCtx context.Context) error {
		var scoreErr error
		scores, scoreErr = scorer.Score(poolCtx, query, texts)
		return scoreErr
	})
	if err != nil || len(scores) != len(fused) {
		return passThroughFusionOrder(fused, size), true
	}

	out := make([]domain.RerankedCandidate, len(fused))
	for i, fc := range fused {
		out[i] = domain.RerankedCandidate{Chunk: fc.Chunk, Score: scores[i]}
	}

	// Stable sort keeps fusion order for equal scores.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})

	if len(out) > size {
		out = out[:size]
	}
	return out, false
}

func passThroughFusionOrder(fused []domain.FusedCandidate, size int) []domain.RerankedCandidate {
	if len(fused) > size {
		fused = fused[:size]
	}
	out := make([]domain.RerankedCandidate, len(fused))
	for i, fc := range fused {
		out[i] = domain.RerankedCandidate{Chunk: fc.Chunk, Score: fc.RRFScore}
	}
	return out
}
