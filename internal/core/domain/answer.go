package domain

// CitationResolution describes how a citation marker was resolved.
type CitationResolution string

const (
	CitationExact      CitationResolution = "exact"
	CitationBestEffort CitationResolution = "best-effort"
	CitationUnresolved CitationResolution = "unresolved"
)

// Citation maps one in-text marker back to a chunk of the final context.
// Index is the parsed 1-based position; zero when the marker did not parse.
type Citation struct {
	Marker     string             `json:"marker"`
	Index      int                `json:"index,omitempty"`
	ChunkID    string             `json:"chunk_id,omitempty"`
	Label      string             `json:"label,omitempty"`
	Preview    string             `json:"preview,omitempty"`
	Resolution CitationResolution `json:"resolution"`
}

// ClaimSupport records how well one answer claim is backed by the context.
type ClaimSupport struct {
	ClaimText       string  `json:"claim_text"`
	Supported       bool    `json:"supported"`
	EvidenceChunkID string  `json:"evidence_chunk_id,omitempty"`
	OverlapScore    float64 `json:"overlap_score"`
}

// FaithfulnessReport aggregates claim support over the whole answer.
// OverallScore is in [0,100]. An answer with no extractable claims scores
// 100 with an empty claim list: there is nothing to be unfaithful to.
type FaithfulnessReport struct {
	OverallScore     float64        `json:"overall_score"`
	Claims           []ClaimSupport `json:"claims"`
	UnsupportedCount int            `json:"unsupported_count"`
}

// ConfidenceStatus distinguishes the in-domain scoring path from the
// fixed out-of-domain path.
type ConfidenceStatus string

const (
	ConfidenceInDomain    ConfidenceStatus = "in-domain"
	ConfidenceOutOfDomain ConfidenceStatus = "out-of-domain"
)

// ConfidenceBreakdown is the reported confidence with its components,
// each in [0,1].
type ConfidenceBreakdown struct {
	RetrievalQuality float64          `json:"retrieval_quality"`
	RerankConfidence float64          `json:"rerank_confidence"`
	Faithfulness     float64          `json:"faithfulness"`
	DomainRelevance  float64          `json:"domain_relevance"`
	Overall          float64          `json:"overall"`
	Status           ConfidenceStatus `json:"status"`
}

// Degradation flags reported on the response envelope. Optional stages
// that fail fall back and announce themselves here instead of erroring.
const (
	FlagKeywordSearchUnavailable = "keyword-search-unavailable"
	FlagRerankSkipped            = "rerank-skipped"
	FlagEmptyContext             = "empty-context"
	FlagFaithfulnessLexicalOnly  = "faithfulness-lexical-only"
	FlagUnresolvedCitation       = "unresolved-citation"
	FlagGuardrailUnavailable     = "guardrail-unavailable"
)

// QueryRequest is the inbound query for one agent.
type QueryRequest struct {
	AgentID  string   `json:"agent_id"`
	Question string   `json:"question"`
	Hints    []string `json:"conversation_hints,omitempty"`
}

// QueryResult is the structured envelope returned to the caller. Field
// presence is stable across degraded modes; DegradedFlags explains any
// stage that was skipped.
type QueryResult struct {
	Answer        string              `json:"answer"`
	InDomain      bool                `json:"in_domain"`
	Confidence    ConfidenceBreakdown `json:"confidence"`
	Citations     []Citation          `json:"citations"`
	Faithfulness  FaithfulnessReport  `json:"faithfulness"`
	ContextUsed   []string            `json:"context_used"`
	DegradedFlags []string            `json:"degraded_flags"`
}

// GenerationRequest is the contract for the external generation service.
type GenerationRequest struct {
	Question string
	Agent    *Agent
	Context  []Chunk
	Hints    []string
}
