package guardrail

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentrag/reasoning-engine/internal/core/domain"
)

// Config tunes signature matching. Threshold is the minimum relevance
// score for a query to count as in-domain.
type Config struct {
	Threshold         float64
	FuzzyRatio        float64
	MaxSignatureTerms int
	MaxCountedWords   int
}

func (c Config) normalize() Config {
	out := c
	if out.Threshold <= 0 {
		out.Threshold = 0.05
	}
	if out.FuzzyRatio <= 0 || out.FuzzyRatio >= 1 {
		out.FuzzyRatio = 0.75
	}
	if out.MaxSignatureTerms <= 0 {
		out.MaxSignatureTerms = 100
	}
	if out.MaxCountedWords <= 0 {
		out.MaxCountedWords = 10
	}
	return out
}

// SignatureChecker scores a query against the agent's domain signature
// terms using fuzzy and substring matching. It implements
// ports.DomainGuardrail.
type SignatureChecker struct {
	cfg Config
}

func NewSignatureChecker(cfg Config) *SignatureChecker {
	return &SignatureChecker{cfg: cfg.normalize()}
}

func (g *SignatureChecker) Check(_ context.Context, query string, agent *domain.Agent) (domain.DomainCheck, error) {
	if agent == nil {
		return domain.DomainCheck{}, fmt.Errorf("guardrail: agent is nil")
	}

	signature := agent.DomainSignature
	if len(signature) > g.cfg.MaxSignatureTerms {
		signature = signature[:g.cfg.MaxSignatureTerms]
	}
	if len(signature) == 0 && strings.TrimSpace(agent.Domain) == "" {
		// Nothing to judge against; let the agent answer.
		return domain.DomainCheck{InDomain: true, Score: 0.5, Reason: "no domain signature configured"}, nil
	}

	queryLower := strings.ToLower(query)
	queryWords := queryWords(queryLower)

	matches := 0.0
	for _, word := range queryWords {
		if len(word) < 3 {
			continue
		}
		for _, term := range signature {
			term = strings.ToLower(term)
			if bigramSimilarity(word, term) > g.cfg.FuzzyRatio {
				matches++
				break
			}
			if strings.Contains(word, term) || strings.Contains(term, word) {
				matches += 0.5
				break
			}
		}
	}

	bonus := 0.0
	domainName := strings.ToLower(strings.TrimSpace(agent.Domain))
	if domainName != "" && strings.Contains(queryLower, domainName) {
		bonus = 3
	}

	counted := len(queryWords)
	if counted > g.cfg.MaxCountedWords {
		counted = g.cfg.MaxCountedWords
	}
	if counted < 1 {
		counted = 1
	}

	score := matches/float64(counted) + minFloat(0.5, bonus*0.1)
	if score > 1 {
		score = 1
	}
	if bonus >= 1 && score < 0.2 {
		score = 0.2
	}

	inDomain := score >= g.cfg.Threshold
	reason := fmt.Sprintf("signature match score %.2f against threshold %.2f", score, g.cfg.Threshold)
	return domain.DomainCheck{InDomain: inDomain, Score: score, Reason: reason}, nil
}

func queryWords(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'))
	})
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// bigramSimilarity is the Dice coefficient over character bigrams, a
// cheap stand-in for edit-distance ratios.
func bigramSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if len(a) < 2 || len(b) < 2 {
		return 0
	}

	bigrams := func(s string) map[string]int {
		out := make(map[string]int, len(s))
		for i := 0; i+2 <= len(s); i++ {
			out[s[i:i+2]]++
		}
		return out
	}

	ba, bb := bigrams(a), bigrams(b)
	overlap := 0
	for gram, count := range ba {
		if other, ok := bb[gram]; ok {
			if other < count {
				count = other
			}
			overlap += count
		}
	}
	return 2 * float64(overlap) / float64(len(a)-1+len(b)-1)
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
