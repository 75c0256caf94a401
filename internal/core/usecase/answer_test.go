package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/agentrag/reasoning-engine/internal/core/domain"
	"github.com/agentrag/reasoning-engine/internal/core/ports"
)

type fakeAgentStore struct {
	agent *domain.Agent
	err   error
}

func (f *fakeAgentStore) GetAgent(_ context.Context, agentID string) (*domain.Agent, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.agent == nil || f.agent.ID != agentID {
		return nil, domain.WrapError(domain.ErrAgentNotFound, "get agent", errors.New(agentID))
	}
	return f.agent, nil
}

type fakeSearcher struct {
	semantic    []domain.ScoredChunk
	keyword     []domain.ScoredChunk
	semanticErr error
	keywordErr  error
}

func (f *fakeSearcher) SemanticSearch(_ context.Context, _ []float32, _ string, _ int) ([]domain.ScoredChunk, error) {
	return f.semantic, f.semanticErr
}

func (f *fakeSearcher) KeywordSearch(_ context.Context, _ string, _ string, _ int) ([]domain.ScoredChunk, error) {
	return f.keyword, f.keywordErr
}

type fakeGenerator struct {
	answer string
	err    error
	calls  int
}

func (f *fakeGenerator) Generate(_ context.Context, _ domain.GenerationRequest) (string, error) {
	f.calls++
	return f.answer, f.err
}

type fakeGuardrail struct {
	check domain.DomainCheck
	err   error
}

func (f *fakeGuardrail) Check(_ context.Context, _ string, _ *domain.Agent) (domain.DomainCheck, error) {
	return f.check, f.err
}

type fakePublisher struct {
	mu     sync.Mutex
	events []ports.AnswerEvent
	err    error
}

func (f *fakePublisher) PublishAnswerCompleted(_ context.Context, event ports.AnswerEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return f.err
}

func (f *fakePublisher) published() []ports.AnswerEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ports.AnswerEvent(nil), f.events...)
}

type fakeObserver struct {
	mu       sync.Mutex
	stages   map[string]int
	statuses []string
}

func (f *fakeObserver) ObserveStage(stage string, _ float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stages == nil {
		f.stages = map[string]int{}
	}
	f.stages[stage]++
}

func (f *fakeObserver) QueryCompleted(status string, _ []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
}

func testAgent() *domain.Agent {
	return &domain.Agent{
		ID:           "agent-1",
		Name:         "Plant Safety",
		Domain:       "industrial safety",
		SystemPrompt: "You are a plant safety assistant.",
	}
}

func pipelineDeps(searcher *fakeSearcher, generator *fakeGenerator) Dependencies {
	return Dependencies{
		Agents:    &fakeAgentStore{agent: testAgent()},
		Embedder:  &fakeEmbedder{},
		Searcher:  searcher,
		Scorer: scorerFunc(func(_ context.Context, _ string, texts []string) ([]float64, error) {
			scores := make([]float64, len(texts))
			for i := range scores {
				scores[i] = float64(len(texts) - i)
			}
			return scores, nil
		}),
		Generator: generator,
		Guardrail: &fakeGuardrail{check: domain.DomainCheck{InDomain: true, Score: 0.4}},
		Pool:      directPool{},
	}
}

func retrievalFixture() *fakeSearcher {
	return &fakeSearcher{
		semantic: scored("chunk-1", "chunk-2", "chunk-3"),
		keyword:  scored("chunk-2", "chunk-1"),
	}
}

func TestAnswerHappyPath(t *testing.T) {
	searcher := retrievalFixture()
	generator := &fakeGenerator{answer: "Inspect the cables quarterly [1]."}
	publisher := &fakePublisher{}
	observer := &fakeObserver{}

	deps := pipelineDeps(searcher, generator)
	deps.Publisher = publisher
	deps.Observer = observer
	uc := NewAnswerQueryUseCase(deps, Config{ContextSize: 2})

	result, err := uc.Answer(context.Background(), domain.QueryRequest{AgentID: "agent-1", Question: "How often are cables inspected?"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.InDomain {
		t.Fatal("expected in-domain result")
	}
	if result.Answer != generator.answer {
		t.Fatalf("unexpected answer: %q", result.Answer)
	}
	if len(result.ContextUsed) != 2 {
		t.Fatalf("expected 2 context chunks, got %v", result.ContextUsed)
	}
	if len(result.Citations) != 1 || result.Citations[0].Resolution != domain.CitationExact {
		t.Fatalf("expected one exact citation, got %+v", result.Citations)
	}
	if result.Confidence.Status != domain.ConfidenceInDomain {
		t.Fatalf("unexpected confidence status: %s", result.Confidence.Status)
	}
	for _, flag := range result.DegradedFlags {
		if flag != domain.FlagFaithfulnessLexicalOnly {
			t.Fatalf("unexpected degraded flag %q", flag)
		}
	}

	events := publisher.published()
	if len(events) != 1 || events[0].AgentID != "agent-1" || events[0].ID == "" {
		t.Fatalf("expected one published event with an id, got %+v", events)
	}
	for _, stage := range []string{"retrieval", "rerank", "generation", "scoring"} {
		if observer.stages[stage] != 1 {
			t.Fatalf("stage %q not observed: %v", stage, observer.stages)
		}
	}
}

func TestAnswerRejectsBlankInput(t *testing.T) {
	uc := NewAnswerQueryUseCase(pipelineDeps(retrievalFixture(), &fakeGenerator{answer: "x"}), Config{})

	if _, err := uc.Answer(context.Background(), domain.QueryRequest{AgentID: "agent-1", Question: "   "}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank question, got %v", err)
	}
	if _, err := uc.Answer(context.Background(), domain.QueryRequest{AgentID: "", Question: "q"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank agent id, got %v", err)
	}
}

func TestAnswerUnknownAgent(t *testing.T) {
	uc := NewAnswerQueryUseCase(pipelineDeps(retrievalFixture(), &fakeGenerator{answer: "x"}), Config{})

	_, err := uc.Answer(context.Background(), domain.QueryRequest{AgentID: "missing", Question: "q"})
	if !errors.Is(err, domain.ErrAgentNotFound) {
		t.Fatalf("expected ErrAgentNotFound, got %v", err)
	}
}

func TestAnswerOutOfDomainRefusal(t *testing.T) {
	generator := &fakeGenerator{answer: "should not run"}
	deps := pipelineDeps(retrievalFixture(), generator)
	deps.Guardrail = &fakeGuardrail{check: domain.DomainCheck{InDomain: false, Score: 0.01, Reason: "no signature match"}}
	uc := NewAnswerQueryUseCase(deps, Config{})

	result, err := uc.Answer(context.Background(), domain.QueryRequest{AgentID: "agent-1", Question: "Best pasta recipe?"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.InDomain {
		t.Fatal("expected out-of-domain result")
	}
	if generator.calls != 0 {
		t.Fatal("generation must not run for out-of-domain queries")
	}
	if result.Confidence.Status != domain.ConfidenceOutOfDomain {
		t.Fatalf("unexpected confidence status: %s", result.Confidence.Status)
	}
	if !strings.Contains(result.Answer, "industrial safety") {
		t.Fatalf("refusal should name the agent domain: %q", result.Answer)
	}
	if len(result.ContextUsed) != 0 || len(result.Citations) != 0 {
		t.Fatalf("refusal must carry no context or citations: %+v", result)
	}
}

func TestAnswerKeywordFailureDegrades(t *testing.T) {
	searcher := retrievalFixture()
	searcher.keywordErr = errors.New("tsquery timeout")
	uc := NewAnswerQueryUseCase(pipelineDeps(searcher, &fakeGenerator{answer: "Answer [1]."}), Config{})

	result, err := uc.Answer(context.Background(), domain.QueryRequest{AgentID: "agent-1", Question: "q"})
	if err != nil {
		t.Fatalf("keyword failure must not fail the query: %v", err)
	}
	if !hasFlag(result.DegradedFlags, domain.FlagKeywordSearchUnavailable) {
		t.Fatalf("expected keyword degradation flag, got %v", result.DegradedFlags)
	}
	if len(result.ContextUsed) == 0 {
		t.Fatal("semantic-only retrieval should still produce context")
	}
}

func TestAnswerSemanticFailureIsFatal(t *testing.T) {
	searcher := retrievalFixture()
	searcher.semanticErr = errors.New("connection refused")
	uc := NewAnswerQueryUseCase(pipelineDeps(searcher, &fakeGenerator{answer: "x"}), Config{})

	_, err := uc.Answer(context.Background(), domain.QueryRequest{AgentID: "agent-1", Question: "q"})
	if !errors.Is(err, domain.ErrRetrievalUnavailable) {
		t.Fatalf("expected ErrRetrievalUnavailable, got %v", err)
	}
}

func TestAnswerEmptyContextShortCircuits(t *testing.T) {
	generator := &fakeGenerator{answer: "should not run"}
	uc := NewAnswerQueryUseCase(pipelineDeps(&fakeSearcher{}, generator), Config{})

	result, err := uc.Answer(context.Background(), domain.QueryRequest{AgentID: "agent-1", Question: "q"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if generator.calls != 0 {
		t.Fatal("generation must not run without context")
	}
	if !hasFlag(result.DegradedFlags, domain.FlagEmptyContext) {
		t.Fatalf("expected empty-context flag, got %v", result.DegradedFlags)
	}
	if !result.InDomain {
		t.Fatal("insufficient knowledge is still an in-domain outcome")
	}
}

func TestAnswerRerankFailureDegrades(t *testing.T) {
	deps := pipelineDeps(retrievalFixture(), &fakeGenerator{answer: "Answer [1]."})
	deps.Scorer = scorerFunc(func(_ context.Context, _ string, _ []string) ([]float64, error) {
		return nil, errors.New("rerank service down")
	})
	uc := NewAnswerQueryUseCase(deps, Config{})

	result, err := uc.Answer(context.Background(), domain.QueryRequest{AgentID: "agent-1", Question: "q"})
	if err != nil {
		t.Fatalf("rerank failure must not fail the query: %v", err)
	}
	if !hasFlag(result.DegradedFlags, domain.FlagRerankSkipped) {
		t.Fatalf("expected rerank-skipped flag, got %v", result.DegradedFlags)
	}
	if result.Confidence.RerankConfidence != 0.5 {
		t.Fatalf("skipped rerank must report neutral confidence, got %v", result.Confidence.RerankConfidence)
	}
}

func TestAnswerGuardrailFailureDegrades(t *testing.T) {
	deps := pipelineDeps(retrievalFixture(), &fakeGenerator{answer: "Answer [1]."})
	deps.Guardrail = &fakeGuardrail{err: errors.New("signature store unavailable")}
	uc := NewAnswerQueryUseCase(deps, Config{})

	result, err := uc.Answer(context.Background(), domain.QueryRequest{AgentID: "agent-1", Question: "q"})
	if err != nil {
		t.Fatalf("guardrail failure must not fail the query: %v", err)
	}
	if !hasFlag(result.DegradedFlags, domain.FlagGuardrailUnavailable) {
		t.Fatalf("expected guardrail-unavailable flag, got %v", result.DegradedFlags)
	}
	if !result.InDomain {
		t.Fatal("guardrail failure must default to answering in-domain")
	}
}

func TestAnswerGenerationFailure(t *testing.T) {
	generator := &fakeGenerator{err: errors.New("model overloaded")}
	uc := NewAnswerQueryUseCase(pipelineDeps(retrievalFixture(), generator), Config{})

	_, err := uc.Answer(context.Background(), domain.QueryRequest{AgentID: "agent-1", Question: "q"})
	if !errors.Is(err, domain.ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
}

func TestAnswerUnresolvedCitationFlagged(t *testing.T) {
	uc := NewAnswerQueryUseCase(pipelineDeps(retrievalFixture(), &fakeGenerator{answer: "See [42]."}), Config{ContextSize: 2})

	result, err := uc.Answer(context.Background(), domain.QueryRequest{AgentID: "agent-1", Question: "q"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !hasFlag(result.DegradedFlags, domain.FlagUnresolvedCitation) {
		t.Fatalf("expected unresolved-citation flag, got %v", result.DegradedFlags)
	}
}

func TestAnswerPublishFailureIsNonFatal(t *testing.T) {
	publisher := &fakePublisher{err: errors.New("broker down")}
	deps := pipelineDeps(retrievalFixture(), &fakeGenerator{answer: "Answer [1]."})
	deps.Publisher = publisher
	uc := NewAnswerQueryUseCase(deps, Config{})

	if _, err := uc.Answer(context.Background(), domain.QueryRequest{AgentID: "agent-1", Question: "q"}); err != nil {
		t.Fatalf("publish failure must not fail the query: %v", err)
	}
	if len(publisher.published()) != 1 {
		t.Fatal("expected exactly one publish attempt")
	}
}

func TestAnswerDeterministicOrdering(t *testing.T) {
	uc := NewAnswerQueryUseCase(pipelineDeps(retrievalFixture(), &fakeGenerator{answer: "Answer [1]."}), Config{ContextSize: 3})
	req := domain.QueryRequest{AgentID: "agent-1", Question: "How often are cables inspected?"}

	first, err := uc.Answer(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := uc.Answer(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first.ContextUsed) != len(second.ContextUsed) {
		t.Fatalf("context sizes differ: %v vs %v", first.ContextUsed, second.ContextUsed)
	}
	for i := range first.ContextUsed {
		if first.ContextUsed[i] != second.ContextUsed[i] {
			t.Fatalf("ordering not deterministic: %v vs %v", first.ContextUsed, second.ContextUsed)
		}
	}
}

func hasFlag(flags []string, want string) bool {
	for _, f := range flags {
		if f == want {
			return true
		}
	}
	return false
}
