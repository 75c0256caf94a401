package domain

// Agent is the knowledge scope a query runs against. Loaded read-only
// from the agent store; lifecycle CRUD belongs to an external collaborator.
type Agent struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Domain          string   `json:"domain"`
	SystemPrompt    string   `json:"-"`
	DomainSignature []string `json:"-"`
	ChunkCount      int      `json:"chunk_count"`
}

// DomainCheck is the guardrail verdict for a query against an agent.
type DomainCheck struct {
	InDomain bool    `json:"in_domain"`
	Score    float64 `json:"score"`
	Reason   string  `json:"reason,omitempty"`
}
