package domain

// RetrievalChannel names the retrieval path a candidate came from.
type RetrievalChannel string

const (
	ChannelSemantic RetrievalChannel = "semantic"
	ChannelKeyword  RetrievalChannel = "keyword"
)

// Chunk is a persisted document fragment owned by the ingestion subsystem.
// This core only reads chunks, never mutates them.
type Chunk struct {
	ID           string    `json:"id"`
	AgentID      string    `json:"agent_id"`
	Content      string    `json:"content"`
	Source       string    `json:"source"`
	ChunkIndex   int       `json:"chunk_index"`
	SectionTitle string    `json:"section_title,omitempty"`
	Embedding    []float32 `json:"-"`
}

// ScoredChunk is a chunk with its channel-local relevance score,
// as returned by one retrieval channel ordered best-first.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// RankedCandidate is a channel-local, 1-indexed ranking entry.
type RankedCandidate struct {
	ChunkID string
	Channel RetrievalChannel
	Rank    int
}

// FusedCandidate is the result of merging the retrieval channels with
// weighted reciprocal rank fusion. RRFScore is the sum of
// weight/(k+rank) over the channels the chunk appeared in.
type FusedCandidate struct {
	Chunk    Chunk
	RRFScore float64
	Channels []RetrievalChannel
}

// RerankedCandidate carries the cross-encoder relevance score for a
// chunk. The final context is the top N of the reranked list.
type RerankedCandidate struct {
	Chunk Chunk
	Score float64
}
