package usecase

import (
	"sort"

	"github.com/agentrag/reasoning-engine/internal/core/domain"
)

// FusionConfig controls weighted reciprocal rank fusion of the two
// retrieval channels. Weights should sum to 1.0.
type FusionConfig struct {
	SemanticWeight float64
	KeywordWeight  float64
	K              int
	CandidateCount int
}

func (c FusionConfig) normalized() FusionConfig {
	out := c
	if out.SemanticWeight <= 0 && out.KeywordWeight <= 0 {
		out.SemanticWeight = 0.6
		out.KeywordWeight = 0.4
	}
	if out.SemanticWeight < 0 {
		out.SemanticWeight = 0
	}
	if out.KeywordWeight < 0 {
		out.KeywordWeight = 0
	}
	if out.K <= 0 {
		out.K = 60
	}
	return out
}

func channelRanking(list []domain.ScoredChunk, channel domain.RetrievalChannel) []domain.RankedCandidate {
	out := make([]domain.RankedCandidate, 0, len(list))
	for i, sc := range list {
		out = append(out, domain.RankedCandidate{
			ChunkID: sc.Chunk.ID,
			Channel: channel,
			Rank:    i + 1,
		})
	}
	return out
}

// fuseChannels merges the channel rankings with weighted RRF. A chunk
// missing from one channel contributes zero for that channel's term; it
// is neither penalized further nor disqualified. The fused list is
// sorted by score descending, ties broken by chunk id ascending, and
// truncated to CandidateCount entries.
func fuseChannels(semantic, keyword []domain.ScoredChunk, cfg FusionConfig) []domain.FusedCandidate {
	cfg = cfg.normalized()

	type entry struct {
		chunk    domain.Chunk
		score    float64
		channels []domain.RetrievalChannel
	}

	chunks := make(map[string]domain.Chunk, len(semantic)+len(keyword))
	for _, sc := range semantic {
		chunks[sc.Chunk.ID] = sc.Chunk
	}
	for _, sc := range keyword {
		if _, ok := chunks[sc.Chunk.ID]; !ok {
			chunks[sc.Chunk.ID] = sc.Chunk
		}
	}

	acc := make(map[string]*entry, len(chunks))
	add := func(ranking []domain.RankedCandidate, weight float64) {
		for _, rc := range ranking {
			e := acc[rc.ChunkID]
			if e == nil {
				e = &entry{chunk: chunks[rc.ChunkID]}
				acc[rc.ChunkID] = e
			}
			e.score += weight / float64(cfg.K+rc.Rank)
			e.channels = append(e.channels, rc.Channel)
		}
	}

	add(channelRanking(semantic, domain.ChannelSemantic), cfg.SemanticWeight)
	add(channelRanking(keyword, domain.ChannelKeyword), cfg.KeywordWeight)

	out := make([]domain.FusedCandidate, 0, len(acc))
	for _, e := range acc {
		out = append(out, domain.FusedCandidate{
			Chunk:    e.chunk,
			RRFScore: e.score,
			Channels: e.channels,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RRFScore != out[j].RRFScore {
			return out[i].RRFScore > out[j].RRFScore
		}
		return out[i].Chunk.ID < out[j].Chunk.ID
	})

	if cfg.CandidateCount > 0 && len(out) > cfg.CandidateCount {
		out = out[:cfg.CandidateCount]
	}
	return out
}
