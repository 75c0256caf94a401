package usecase

import "github.com/agentrag/reasoning-engine/internal/core/domain"

// ConfidenceConfig fixes the signal weights and the normalization
// applied to raw retrieval and rerank scores before blending.
type ConfidenceConfig struct {
	RetrievalWeight    float64
	RerankWeight       float64
	FaithfulnessWeight float64
	InDomainFloor      float64
	RRFScale           float64
	RerankScoreMin     float64
	RerankScoreMax     float64
	OutOfDomainOverall float64
}

func (c ConfidenceConfig) normalized() ConfidenceConfig {
	out := c
	if out.RetrievalWeight <= 0 {
		out.RetrievalWeight = 0.35
	}
	if out.RerankWeight <= 0 {
		out.RerankWeight = 0.30
	}
	if out.FaithfulnessWeight <= 0 {
		out.FaithfulnessWeight = 0.25
	}
	if out.InDomainFloor <= 0 {
		out.InDomainFloor = 0.10
	}
	if out.RRFScale <= 0 {
		out.RRFScale = 30
	}
	if out.RerankScoreMax <= out.RerankScoreMin {
		out.RerankScoreMin = -10
		out.RerankScoreMax = 10
	}
	if out.OutOfDomainOverall <= 0 {
		out.OutOfDomainOverall = 0.10
	}
	return out
}

// ConfidenceInputs are the signals feeding the aggregator. TopRRFScore
// is the best fused score, TopRerankScore the best cross-encoder score
// in its model-defined range, Faithfulness in [0,1].
type ConfidenceInputs struct {
	TopRRFScore     float64
	TopRerankScore  float64
	RerankSkipped   bool
	Faithfulness    float64
	DomainRelevance float64
	InDomain        bool
}

// AggregateConfidence combines retrieval quality, rerank confidence and
// faithfulness into one reported score. It is pure: a deterministic
// function of its numeric inputs plus the in-domain flag. Out-of-domain
// queries take the fixed path and never blend with in-domain scoring.
func AggregateConfidence(in ConfidenceInputs, cfg ConfidenceConfig) domain.ConfidenceBreakdown {
	cfg = cfg.normalized()

	if !in.InDomain {
		return domain.ConfidenceBreakdown{
			DomainRelevance: clamp01(in.DomainRelevance),
			Overall:         cfg.OutOfDomainOverall,
			Status:          domain.ConfidenceOutOfDomain,
		}
	}

	retrieval := clamp01(in.TopRRFScore * cfg.RRFScale)

	// Pass-through neutral confidence when reranking was skipped: the
	// fusion order carries no cross-encoder signal either way.
	rerank := 0.5
	if !in.RerankSkipped {
		rerank = clamp01((in.TopRerankScore - cfg.RerankScoreMin) / (cfg.RerankScoreMax - cfg.RerankScoreMin))
	}

	faithfulness := clamp01(in.Faithfulness)

	overall := clamp01(cfg.RetrievalWeight*retrieval +
		cfg.RerankWeight*rerank +
		cfg.FaithfulnessWeight*faithfulness +
		cfg.InDomainFloor)

	return domain.ConfidenceBreakdown{
		RetrievalQuality: retrieval,
		RerankConfidence: rerank,
		Faithfulness:     faithfulness,
		DomainRelevance:  clamp01(in.DomainRelevance),
		Overall:          overall,
		Status:           domain.ConfidenceInDomain,
	}
}
