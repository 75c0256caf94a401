package ports

import (
	"context"

	"github.com/agentrag/reasoning-engine/internal/core/domain"
)

// AgentStore reads agent records. Agent lifecycle is owned elsewhere.
type AgentStore interface {
	GetAgent(ctx context.Context, agentID string) (*domain.Agent, error)
}

// ChunkSearcher runs the two retrieval channels over one agent's chunks.
// Both return results ordered best-first. KeywordSearch may legitimately
// return an empty list.
type ChunkSearcher interface {
	SemanticSearch(ctx context.Context, queryVector []float32, agentID string, limit int) ([]domain.ScoredChunk, error)
	KeywordSearch(ctx context.Context, queryText string, agentID string, limit int) ([]domain.ScoredChunk, error)
}

// Embedder converts text to fixed-dimension vectors. Implementations
// fail closed: an error, never a zero vector.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// RelevanceScorer scores (query, text) pairs jointly, cross-encoder
// style. Scores are returned in input order; the range is model-defined.
type RelevanceScorer interface {
	Score(ctx context.Context, query string, texts []string) ([]float64, error)
}

// AnswerGenerator is the external text-completion service. It returns
// the answer text with inline bracket-number citation markers.
type AnswerGenerator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (string, error)
}

// DomainGuardrail decides whether a query falls inside an agent's
// configured knowledge scope.
type DomainGuardrail interface {
	Check(ctx context.Context, query string, agent *domain.Agent) (domain.DomainCheck, error)
}

// AnswerEvent is the completed-answer record handed to the external
// conversation-history collaborator.
type AnswerEvent struct {
	ID        string              `json:"id"`
	AgentID   string              `json:"agent_id"`
	Question  string              `json:"question"`
	Result    *domain.QueryResult `json:"result"`
	CreatedAt string              `json:"created_at"`
}

// AnswerEventPublisher hands finished answers off for persistence and
// analytics. Publishing is best-effort and never fails the query.
type AnswerEventPublisher interface {
	PublishAnswerCompleted(ctx context.Context, event AnswerEvent) error
}

// ScoringPool bounds concurrent model inference (reranking, claim
// embedding) so a slow call cannot stall unrelated queries. Acquiring a
// slot waits at most the configured queue timeout.
type ScoringPool interface {
	Do(ctx context.Context, fn func(context.Context) error) error
}

// PipelineObserver receives pipeline telemetry. Implementations must be
// safe for concurrent use.
type PipelineObserver interface {
	ObserveStage(stage string, seconds float64)
	QueryCompleted(status string, flags []string)
}
