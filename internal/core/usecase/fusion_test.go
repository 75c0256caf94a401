package usecase

import (
	"testing"

	"github.com/agentrag/reasoning-engine/internal/core/domain"
)

func scored(ids ...string) []domain.ScoredChunk {
	out := make([]domain.ScoredChunk, 0, len(ids))
	for i, id := range ids {
		out = append(out, domain.ScoredChunk{
			Chunk: domain.Chunk{ID: id, Content: "content " + id},
			Score: 1.0 - float64(i)*0.1,
		})
	}
	return out
}

func TestFuseChannelsWeightedOrder(t *testing.T) {
	// Semantic ranks B first, keyword ranks A first. With the semantic
	// channel weighted 0.6 the semantic winner must come out on top.
	semantic := scored("chunk-b", "chunk-a", "chunk-c")
	keyword := scored("chunk-a", "chunk-b", "chunk-c")

	fused := fuseChannels(semantic, keyword, FusionConfig{SemanticWeight: 0.6, KeywordWeight: 0.4, K: 60})
	if len(fused) != 3 {
		t.Fatalf("expected 3 fused candidates, got %d", len(fused))
	}
	gotOrder := []string{fused[0].Chunk.ID, fused[1].Chunk.ID, fused[2].Chunk.ID}
	wantOrder := []string{"chunk-b", "chunk-a", "chunk-c"}
	for i := range wantOrder {
		if gotOrder[i] != wantOrder[i] {
			t.Fatalf("fused order mismatch at %d: got %v want %v", i, gotOrder, wantOrder)
		}
	}

	wantTop := 0.6/61 + 0.4/62
	if diff := fused[0].RRFScore - wantTop; diff > 1e-12 || diff < -1e-12 {
		t.Fatalf("top rrf score = %v, want %v", fused[0].RRFScore, wantTop)
	}
}

func TestFuseChannelsScoresNonIncreasing(t *testing.T) {
	semantic := scored("c1", "c2", "c3", "c4")
	keyword := scored("c3", "c5", "c1")

	fused := fuseChannels(semantic, keyword, FusionConfig{})
	for i := 1; i < len(fused); i++ {
		if fused[i].RRFScore > fused[i-1].RRFScore {
			t.Fatalf("rrf score increased at position %d: %v > %v", i, fused[i].RRFScore, fused[i-1].RRFScore)
		}
	}
}

func TestFuseChannelsDoubleWinnerFirst(t *testing.T) {
	semantic := scored("winner", "c2", "c3")
	keyword := scored("winner", "c4", "c2")

	fused := fuseChannels(semantic, keyword, FusionConfig{})
	if fused[0].Chunk.ID != "winner" {
		t.Fatalf("chunk ranked first by both channels must fuse first, got %s", fused[0].Chunk.ID)
	}
	if got := len(fused[0].Channels); got != 2 {
		t.Fatalf("expected 2 contributing channels for winner, got %d", got)
	}
}

func TestFuseChannelsKeywordAbsenceKeepsSemanticOrder(t *testing.T) {
	semantic := scored("c1", "c2", "c3", "c4")
	keyword := scored("c9", "c8")

	withKeyword := fuseChannels(semantic, keyword, FusionConfig{})
	withoutKeyword := fuseChannels(semantic, nil, FusionConfig{})

	semanticOnly := func(fused []domain.FusedCandidate) []string {
		var out []string
		for _, fc := range fused {
			for _, sc := range semantic {
				if fc.Chunk.ID == sc.Chunk.ID {
					out = append(out, fc.Chunk.ID)
					break
				}
			}
		}
		return out
	}

	a := semanticOnly(withKeyword)
	b := semanticOnly(withoutKeyword)
	if len(a) != len(b) {
		t.Fatalf("semantic-only chunk counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("relative semantic order changed at %d: %v vs %v", i, a, b)
		}
	}
}

func TestFuseChannelsTieBreakByChunkID(t *testing.T) {
	semantic := scored("chunk-z")
	keyword := scored("chunk-a")

	fused := fuseChannels(semantic, keyword, FusionConfig{SemanticWeight: 0.5, KeywordWeight: 0.5, K: 60})
	if len(fused) != 2 {
		t.Fatalf("expected 2 fused candidates, got %d", len(fused))
	}
	if fused[0].Chunk.ID != "chunk-a" {
		t.Fatalf("equal scores must tie-break by chunk id ascending, got first=%s", fused[0].Chunk.ID)
	}
}

func TestFuseChannelsTruncatesToCandidateCount(t *testing.T) {
	semantic := scored("c1", "c2", "c3", "c4", "c5", "c6")

	fused := fuseChannels(semantic, nil, FusionConfig{CandidateCount: 4})
	if len(fused) != 4 {
		t.Fatalf("expected truncation to 4 candidates, got %d", len(fused))
	}
}

func TestFuseChannelsDeterministic(t *testing.T) {
	semantic := scored("c2", "c1", "c4")
	keyword := scored("c4", "c3", "c2", "c5")

	first := fuseChannels(semantic, keyword, FusionConfig{})
	second := fuseChannels(semantic, keyword, FusionConfig{})
	if len(first) != len(second) {
		t.Fatalf("run lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Chunk.ID != second[i].Chunk.ID || first[i].RRFScore != second[i].RRFScore {
			t.Fatalf("fusion is not deterministic at %d: %+v vs %+v", i, first[i], second[i])
		}
	}
}
