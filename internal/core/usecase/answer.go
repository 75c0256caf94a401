package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/agentrag/reasoning-engine/internal/core/domain"
	"github.com/agentrag/reasoning-engine/internal/core/ports"
)

// Config tunes the whole answer pipeline. Zero values fall back to the
// documented defaults.
type Config struct {
	Fusion            FusionConfig
	ContextSize       int
	Faithfulness      FaithfulnessConfig
	Confidence        ConfidenceConfig
	GenerationTimeout time.Duration
	PublishTimeout    time.Duration
}

// Dependencies groups the collaborators of the answer pipeline.
// Publisher, Observer and Logger are optional.
type Dependencies struct {
	Agents    ports.AgentStore
	Embedder  ports.Embedder
	Searcher  ports.ChunkSearcher
	Scorer    ports.RelevanceScorer
	Generator ports.AnswerGenerator
	Guardrail ports.DomainGuardrail
	Pool      ports.ScoringPool
	Publisher ports.AnswerEventPublisher
	Observer  ports.PipelineObserver
	Logger    *slog.Logger
}

// AnswerQueryUseCase runs one query through retrieval, fusion,
// reranking, generation, attribution, faithfulness and confidence
// aggregation. Each query is an independent unit of work; the use case
// holds no per-query state.
type AnswerQueryUseCase struct {
	deps   Dependencies
	claims *claimScorer
	cfg    Config
}

func NewAnswerQueryUseCase(deps Dependencies, cfg Config) *AnswerQueryUseCase {
	cfg.ContextSize = clampContextSize(cfg.ContextSize)
	if cfg.Fusion.CandidateCount <= 0 {
		cfg.Fusion.CandidateCount = 2 * cfg.ContextSize
	}
	cfg.Fusion = cfg.Fusion.normalized()
	cfg.Confidence = cfg.Confidence.normalized()
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = 60 * time.Second
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 2 * time.Second
	}
	if deps.Pool == nil {
		deps.Pool = directPool{}
	}
	if deps.Observer == nil {
		deps.Observer = nopObserver{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	return &AnswerQueryUseCase{
		deps:   deps,
		claims: newClaimScorer(deps.Embedder, deps.Pool, cfg.Faithfulness),
		cfg:    cfg,
	}
}

func (uc *AnswerQueryUseCase) Answer(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer query", errors.New("question is required"))
	}
	if strings.TrimSpace(req.AgentID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer query", errors.New("agent_id is required"))
	}

	agent, err := uc.deps.Agents.GetAgent(ctx, req.AgentID)
	if err != nil {
		return nil, fmt.Errorf("load agent: %w", err)
	}

	flags := make([]string, 0, 4)

	check, err := uc.deps.Guardrail.Check(ctx, question, agent)
	if err != nil {
		// Guardrail down: answer in-domain rather than refusing blind.
		flags = append(flags, domain.FlagGuardrailUnavailable)
		check = domain.DomainCheck{InDomain: true}
	}
	if !check.InDomain {
		result := uc.outOfDomainResult(agent, check, flags)
		uc.finish(ctx, req, result, "out_of_domain")
		return result, nil
	}

	retrievalStart := time.Now()
	queryVector, err := uc.deps.Embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, domain.WrapError(domain.ErrRetrievalUnavailable, "embed query", err)
	}

	semantic, keyword, keywordDown, err := uc.retrieve(ctx, queryVector, question, req.AgentID)
	if err != nil {
		return nil, err
	}
	if keywordDown {
		flags = append(flags, domain.FlagKeywordSearchUnavailable)
	}

	fused := fuseChannels(semantic, keyword, uc.cfg.Fusion)
	uc.deps.Observer.ObserveStage("retrieval", time.Since(retrievalStart).Seconds())

	if len(fused) == 0 {
		result := uc.insufficientKnowledgeResult(agent, check, append(flags, domain.FlagEmptyContext))
		uc.finish(ctx, req, result, "empty_context")
		return result, nil
	}

	rerankStart := time.Now()
	reranked, rerankSkipped := rerankCandidates(ctx, uc.deps.Scorer, uc.deps.Pool, question, fused, uc.cfg.ContextSize)
	uc.deps.Observer.ObserveStage("rerank", time.Since(rerankStart).Seconds())
	if rerankSkipped {
		flags = append(flags, domain.FlagRerankSkipped)
	}

	finalContext := make([]domain.Chunk, len(reranked))
	contextIDs := make([]string, len(reranked))
	for i, rc := range reranked {
		finalContext[i] = rc.Chunk
		contextIDs[i] = rc.Chunk.ID
	}

	generationStart := time.Now()
	genCtx, cancel := context.WithTimeout(ctx, uc.cfg.GenerationTimeout)
	answer, err := uc.deps.Generator.Generate(genCtx, domain.GenerationRequest{
		Question: question,
		Agent:    agent,
		Context:  finalContext,
		Hints:    req.Hints,
	})
	cancel()
	uc.deps.Observer.ObserveStage("generation", time.Since(generationStart).Seconds())
	if err != nil {
		return nil, domain.WrapError(domain.ErrGenerationFailed, "generate answer", err)
	}

	scoringStart := time.Now()
	var citations []domain.Citation
	var report domain.FaithfulnessReport
	var lexicalOnly bool

	g, postCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		citations = resolveCitations(answer, finalContext)
		return nil
	})
	g.Go(func() error {
		report, lexicalOnly = uc.claims.Score(postCtx, answer, finalContext)
		return nil
	})
	_ = g.Wait()
	uc.deps.Observer.ObserveStage("scoring", time.Since(scoringStart).Seconds())

	if lexicalOnly {
		flags = append(flags, domain.FlagFaithfulnessLexicalOnly)
	}
	if hasUnresolvedCitation(citations) {
		flags = append(flags, domain.FlagUnresolvedCitation)
	}

	topRerank := 0.0
	if len(reranked) > 0 {
		topRerank = reranked[0].Score
	}
	confidence := AggregateConfidence(ConfidenceInputs{
		TopRRFScore:     fused[0].RRFScore,
		TopRerankScore:  topRerank,
		RerankSkipped:   rerankSkipped,
		Faithfulness:    report.OverallScore / 100,
		DomainRelevance: check.Score,
		InDomain:        true,
	}, uc.cfg.Confidence)

	result := &domain.QueryResult{
		Answer:        answer,
		InDomain:      true,
		Confidence:    confidence,
		Citations:     citations,
		Faithfulness:  report,
		ContextUsed:   contextIDs,
		DegradedFlags: flags,
	}

	uc.finish(ctx, req, result, "ok")
	return result, nil
}

// retrieve fans out to the semantic and keyword channels concurrently
// and joins before fusion. The semantic channel is load-bearing; a
// keyword failure only marks the response degraded.
func (uc *AnswerQueryUseCase) retrieve(
	ctx context.Context,
	queryVector []float32,
	question string,
	agentID string,
) (semantic, keyword []domain.ScoredChunk, keywordDown bool, err error) {
	limit := uc.cfg.Fusion.CandidateCount

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		results, searchErr := uc.deps.Searcher.SemanticSearch(gctx, queryVector, agentID, limit)
		if searchErr != nil {
			return domain.WrapError(domain.ErrRetrievalUnavailable, "semantic search", searchErr)
		}
		semantic = results
		return nil
	})
	g.Go(func() error {
		results, searchErr := uc.deps.Searcher.KeywordSearch(gctx, question, agentID, limit)
		if searchErr != nil {
			keywordDown = true
			uc.deps.Logger.Warn("keyword_search_unavailable", "agent_id", agentID, "error", searchErr)
			return nil
		}
		keyword = results
		return nil
	})
	if waitErr := g.Wait(); waitErr != nil {
		return nil, nil, false, waitErr
	}
	return semantic, keyword, keywordDown, nil
}

func (uc *AnswerQueryUseCase) outOfDomainResult(agent *domain.Agent, check domain.DomainCheck, flags []string) *domain.QueryResult {
	answer := fmt.Sprintf(
		"Your question appears to be outside my area of expertise. I am a specialized %s assistant and can only answer questions related to that domain.",
		agent.Domain,
	)
	if agent.Domain == "" {
		answer = "Your question appears to be outside this agent's configured knowledge scope."
	}
	return &domain.QueryResult{
		Answer:        answer,
		InDomain:      false,
		Confidence:    AggregateConfidence(ConfidenceInputs{DomainRelevance: check.Score, InDomain: false}, uc.cfg.Confidence),
		Citations:     []domain.Citation{},
		Faithfulness:  emptyFaithfulness(),
		ContextUsed:   []string{},
		DegradedFlags: ensureFlags(flags),
	}
}

func (uc *AnswerQueryUseCase) insufficientKnowledgeResult(agent *domain.Agent, check domain.DomainCheck, flags []string) *domain.QueryResult {
	answer := "I couldn't find relevant information in my knowledge base to answer your question. Try rephrasing with different keywords or asking about a more specific aspect."
	if agent.Domain != "" {
		answer = fmt.Sprintf(
			"I couldn't find relevant information in my knowledge base to answer your question. Try rephrasing with different keywords or asking about a more specific aspect of %s.",
			agent.Domain,
		)
	}

	confidence := AggregateConfidence(ConfidenceInputs{
		DomainRelevance: check.Score,
		InDomain:        true,
	}, uc.cfg.Confidence)

	return &domain.QueryResult{
		Answer:        answer,
		InDomain:      true,
		Confidence:    confidence,
		Citations:     []domain.Citation{},
		Faithfulness:  emptyFaithfulness(),
		ContextUsed:   []string{},
		DegradedFlags: ensureFlags(flags),
	}
}

func (uc *AnswerQueryUseCase) finish(ctx context.Context, req domain.QueryRequest, result *domain.QueryResult, status string) {
	uc.deps.Observer.QueryCompleted(status, result.DegradedFlags)

	if uc.deps.Publisher == nil {
		return
	}
	// Best-effort hand-off to the conversation-history collaborator.
	// Detached from the request context so a client disconnect after a
	// finished answer does not lose the event.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.cfg.PublishTimeout)
	defer cancel()

	event := ports.AnswerEvent{
		ID:        uuid.NewString(),
		AgentID:   req.AgentID,
		Question:  req.Question,
		Result:    result,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := uc.deps.Publisher.PublishAnswerCompleted(pubCtx, event); err != nil {
		uc.deps.Logger.Warn("answer_event_publish_failed", "agent_id", req.AgentID, "error", err)
	}
}

func emptyFaithfulness() domain.FaithfulnessReport {
	return domain.FaithfulnessReport{OverallScore: 100, Claims: []domain.ClaimSupport{}}
}

func ensureFlags(flags []string) []string {
	if flags == nil {
		return []string{}
	}
	return flags
}

// directPool runs work inline. Used when no bounded pool is configured,
// e.g. in tests.
type directPool struct{}

func (directPool) Do(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

type nopObserver struct{}

func (nopObserver) ObserveStage(string, float64)    {}
func (nopObserver) QueryCompleted(string, []string) {}
