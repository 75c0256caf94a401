package usecase

import (
	"context"
	"strings"
	"unicode"

	"github.com/agentrag/reasoning-engine/internal/core/domain"
	"github.com/agentrag/reasoning-engine/internal/core/ports"
)

// FaithfulnessConfig tunes claim segmentation and support scoring. The
// threshold and segmentation minimums are injectable so boundary
// behavior stays deterministic under test.
type FaithfulnessConfig struct {
	SupportThreshold float64
	PartialFloor     float64
	MinClaimTokens   int
	MinTokenLength   int
	LexicalWeight    float64
	SemanticWeight   float64
}

func (c FaithfulnessConfig) normalized() FaithfulnessConfig {
	out := c
	if out.SupportThreshold <= 0 || out.SupportThreshold > 1 {
		out.SupportThreshold = 0.5
	}
	if out.PartialFloor < 0 || out.PartialFloor >= out.SupportThreshold {
		out.PartialFloor = 0.2
	}
	if out.MinClaimTokens <= 0 {
		out.MinClaimTokens = 4
	}
	if out.MinTokenLength <= 0 {
		out.MinTokenLength = 3
	}
	if out.LexicalWeight <= 0 && out.SemanticWeight <= 0 {
		out.LexicalWeight = 0.5
		out.SemanticWeight = 0.5
	}
	return out
}

type claimScorer struct {
	embedder ports.Embedder
	pool     ports.ScoringPool
	cfg      FaithfulnessConfig
}

func newClaimScorer(embedder ports.Embedder, pool ports.ScoringPool, cfg FaithfulnessConfig) *claimScorer {
	return &claimScorer{embedder: embedder, pool: pool, cfg: cfg.normalized()}
}

// Score decomposes the answer into sentence-level claims and measures
// each claim's support against the final context. Supported claims earn
// full credit; weak matches above the partial floor earn their combined
// score as partial credit; claims matching nothing earn zero. The
// second return value reports lexical-only mode, entered when claim
// embeddings are unavailable.
func (s *claimScorer) Score(ctx context.Context, answer string, contextChunks []domain.Chunk) (domain.FaithfulnessReport, bool) {
	claims := splitClaims(answer, s.cfg.MinClaimTokens)
	if len(claims) == 0 {
		// Nothing to be unfaithful to, e.g. a refusal message.
		return domain.FaithfulnessReport{OverallScore: 100, Claims: []domain.ClaimSupport{}}, false
	}

	chunkTokens := make([]map[string]struct{}, len(contextChunks))
	haveEmbeddings := false
	for i, chunk := range contextChunks {
		chunkTokens[i] = significantTokens(chunk.Content, s.cfg.MinTokenLength)
		if len(chunk.Embedding) > 0 {
			haveEmbeddings = true
		}
	}

	claimVectors, lexicalOnly := s.embedClaims(ctx, claims)
	if !haveEmbeddings {
		lexicalOnly = true
	}

	supports := make([]domain.ClaimSupport, 0, len(claims))
	credit := 0.0
	unsupported := 0

	for i, claim := range claims {
		tokens := significantTokens(claim, s.cfg.MinTokenLength)

		best := 0.0
		bestChunk := ""
		for j, chunk := range contextChunks {
			overlap := tokenOverlap(tokens, chunkTokens[j])
			combined := overlap
			if !lexicalOnly {
				cos := clamp01(cosineSimilarity(claimVectors[i], chunk.Embedding))
				combined = s.cfg.LexicalWeight*overlap + s.cfg.SemanticWeight*cos
			}
			if combined > best {
				best = combined
				bestChunk = chunk.ID
			}
		}

		supported := best >= s.cfg.SupportThreshold
		evidence := bestChunk
		switch {
		case supported:
			credit += 1.0
		case best >= s.cfg.PartialFloor:
			credit += best
		default:
			evidence = ""
		}
		if !supported {
			unsupported++
		}

		supports = append(supports, domain.ClaimSupport{
			ClaimText:       claim,
			Supported:       supported,
			EvidenceChunkID: evidence,
			OverlapScore:    clamp01(best),
		})
	}

	return domain.FaithfulnessReport{
		OverallScore:     100 * credit / float64(len(claims)),
		Claims:           supports,
		UnsupportedCount: unsupported,
	}, lexicalOnly
}

// embedClaims runs the batch embedding call on the bounded pool. A
// failure degrades scoring to lexical-only instead of failing the query.
func (s *claimScorer) embedClaims(ctx context.Context, claims []string) ([][]float32, bool) {
	if s.embedder == nil {
		return nil, true
	}
	var vectors [][]float32
	err := s.pool.Do(ctx, func(poolCtx context.Context) error {
		var embedErr error
		vectors, embedErr = s.embedder.Embed(poolCtx, claims)
		return embedErr
	})
	if err != nil || len(vectors) != len(claims) {
		return nil, true
	}
	return vectors, false
}

// splitClaims segments text into sentences on terminal punctuation
// followed by whitespace, then keeps sentences with at least minTokens
// word tokens as claim units.
func splitClaims(text string, minTokens int) []string {
	sentences := splitSentences(text)
	out := make([]string, 0, len(sentences))
	for _, sentence := range sentences {
		if len(splitAlphaNumLower(sentence)) >= minTokens {
			out = append(out, sentence)
		}
	}
	return out
}

func splitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	runes := []rune(text)
	out := make([]string, 0, 8)
	var b strings.Builder
	for i, r := range runes {
		b.WriteRune(r)
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(b.String()); s != "" {
			out = append(out, s)
		}
		b.Reset()
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		out = append(out, s)
	}
	return out
}
