package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/agentrag/reasoning-engine/internal/core/domain"
)

// ChunkStore serves both retrieval channels from one table: pgvector
// cosine distance for the semantic channel, a generated tsvector column
// for the keyword channel.
type ChunkStore struct {
	db *sql.DB
}

func NewChunkStore(db *sql.DB) *ChunkStore {
	return &ChunkStore{db: db}
}

func (s *ChunkStore) SemanticSearch(ctx context.Context, queryVector []float32, agentID string, limit int) ([]domain.ScoredChunk, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, agent_id, content, source, chunk_index, section_title, embedding,
	1 - (embedding <=> $1) AS score
FROM chunks
WHERE agent_id = $2 AND embedding IS NOT NULL
ORDER BY embedding <=> $1
LIMIT $3
`, pgvector.NewVector(queryVector), agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}
	defer rows.Close()

	return scanScoredChunks(rows, "semantic search")
}

func (s *ChunkStore) KeywordSearch(ctx context.Context, queryText string, agentID string, limit int) ([]domain.ScoredChunk, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, agent_id, content, source, chunk_index, section_title, embedding,
	ts_rank(lexical, plainto_tsquery('english', $1)) AS score
FROM chunks
WHERE agent_id = $2 AND embedding IS NOT NULL
	AND lexical @@ plainto_tsquery('english', $1)
ORDER BY score DESC, id ASC
LIMIT $3
`, queryText, agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	defer rows.Close()

	return scanScoredChunks(rows, "keyword search")
}

func scanScoredChunks(rows *sql.Rows, operation string) ([]domain.ScoredChunk, error) {
	out := make([]domain.ScoredChunk, 0, 16)
	for rows.Next() {
		var sc domain.ScoredChunk
		var embedding pgvector.Vector
		if err := rows.Scan(
			&sc.Chunk.ID,
			&sc.Chunk.AgentID,
			&sc.Chunk.Content,
			&sc.Chunk.Source,
			&sc.Chunk.ChunkIndex,
			&sc.Chunk.SectionTitle,
			&embedding,
			&sc.Score,
		); err != nil {
			return nil, fmt.Errorf("%s scan: %w", operation, err)
		}
		sc.Chunk.Embedding = embedding.Slice()
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s rows: %w", operation, err)
	}
	return out, nil
}
