package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/agentrag/reasoning-engine/internal/core/domain"
)

type AgentStore struct {
	db *sql.DB
}

func NewAgentStore(db *sql.DB) *AgentStore {
	return &AgentStore{db: db}
}

func (s *AgentStore) GetAgent(ctx context.Context, agentID string) (*domain.Agent, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT a.id, a.name, a.domain, a.system_prompt, a.domain_signature,
	(SELECT COUNT(*) FROM chunks c WHERE c.agent_id = a.id)
FROM agents a
WHERE a.id = $1
`, agentID)

	var agent domain.Agent
	var signatureRaw []byte
	if err := row.Scan(
		&agent.ID,
		&agent.Name,
		&agent.Domain,
		&agent.SystemPrompt,
		&signatureRaw,
		&agent.ChunkCount,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrAgentNotFound, "get agent", err)
		}
		return nil, fmt.Errorf("get agent: %w", err)
	}

	if len(signatureRaw) > 0 {
		if err := json.Unmarshal(signatureRaw, &agent.DomainSignature); err != nil {
			return nil, fmt.Errorf("decode domain signature: %w", err)
		}
	}
	return &agent, nil
}
