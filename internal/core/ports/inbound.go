package ports

import (
	"context"

	"github.com/agentrag/reasoning-engine/internal/core/domain"
)

// QueryAnswerer is the inbound contract for grounded question answering.
type QueryAnswerer interface {
	Answer(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error)
}
