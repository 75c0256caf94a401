package ollama

import (
	"fmt"
	"strings"

	"github.com/agentrag/reasoning-engine/internal/core/domain"
)

// buildAnswerPrompt lays out the agent persona, the numbered context
// and the citation rules. Context numbering is 1-based and must match
// what the citation resolver expects.
func buildAnswerPrompt(req domain.GenerationRequest) string {
	var b strings.Builder

	systemPrompt := ""
	if req.Agent != nil {
		systemPrompt = strings.TrimSpace(req.Agent.SystemPrompt)
	}
	if systemPrompt == "" {
		systemPrompt = "You are a knowledgeable assistant. Answer using only the provided context."
	}
	b.WriteString(systemPrompt)
	b.WriteString("\n\n")

	b.WriteString("Answer the question using only the numbered context below.\n")
	b.WriteString("Cite your sources with bracket markers like [1] or [2] after each statement they support.\n")
	b.WriteString("Use only the numbers shown in the context. If the context does not contain the answer, say so directly.\n\n")

	if len(req.Hints) > 0 {
		b.WriteString("Additional guidance:\n")
		for _, hint := range req.Hints {
			b.WriteString("- " + hint + "\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("Context:\n")
	for i, chunk := range req.Context {
		label := chunk.Source
		if label == "" {
			label = "unknown"
		}
		if chunk.SectionTitle != "" {
			label += " / " + chunk.SectionTitle
		}
		b.WriteString(fmt.Sprintf("[%d] %s\n%s\n\n", i+1, label, strings.TrimSpace(chunk.Content)))
	}

	b.WriteString("Question:\n")
	b.WriteString(strings.TrimSpace(req.Question))
	b.WriteString("\n")
	return b.String()
}
