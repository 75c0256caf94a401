package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/agentrag/reasoning-engine/internal/config"
	"github.com/agentrag/reasoning-engine/internal/core/ports"
	"github.com/agentrag/reasoning-engine/internal/core/usecase"
	"github.com/agentrag/reasoning-engine/internal/infrastructure/guardrail"
	"github.com/agentrag/reasoning-engine/internal/infrastructure/llm/ollama"
	"github.com/agentrag/reasoning-engine/internal/infrastructure/queue/nats"
	"github.com/agentrag/reasoning-engine/internal/infrastructure/rerank/tei"
	"github.com/agentrag/reasoning-engine/internal/infrastructure/resilience"
	"github.com/agentrag/reasoning-engine/internal/infrastructure/store/postgres"
	"github.com/agentrag/reasoning-engine/internal/infrastructure/workerpool"
	"github.com/agentrag/reasoning-engine/internal/observability/metrics"
)

type App struct {
	Config   config.Config
	Answerer ports.QueryAnswerer
	Metrics  *metrics.PipelineMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig(), logger)

	publisher, err := nats.New(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
		Logger:             logger,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init answer publisher: %w", err)
	}

	pipelineMetrics := metrics.NewPipelineMetrics("reasoning-engine")

	pool := workerpool.New(workerpool.Config{
		MaxConcurrent: cfg.ScoringPoolSize,
		QueueTimeout:  time.Duration(cfg.ScoringQueueTimeoutSeconds) * time.Second,
	})
	pool.SetGauge(pipelineMetrics.SetPoolInFlight)

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor)
	embedder := ollama.NewEmbedder(ollamaClient)
	generator := ollama.NewGenerator(ollamaClient)
	scorer := tei.New(cfg.RerankerURL, executor)

	answerer := usecase.NewAnswerQueryUseCase(usecase.Dependencies{
		Agents:    postgres.NewAgentStore(db),
		Embedder:  embedder,
		Searcher:  postgres.NewChunkStore(db),
		Scorer:    scorer,
		Generator: generator,
		Guardrail: guardrail.NewSignatureChecker(guardrail.Config{Threshold: cfg.GuardrailCutoff}),
		Pool:      pool,
		Publisher: publisher,
		Observer:  pipelineMetrics,
		Logger:    logger,
	}, usecase.Config{
		Fusion: usecase.FusionConfig{
			SemanticWeight: cfg.SemanticWeight,
			KeywordWeight:  cfg.KeywordWeight,
			K:              cfg.FusionRRFK,
			CandidateCount: cfg.CandidateCount,
		},
		ContextSize: cfg.ContextSize,
		Faithfulness: usecase.FaithfulnessConfig{
			SupportThreshold: cfg.SupportThreshold,
			PartialFloor:     cfg.PartialFloor,
			MinClaimTokens:   cfg.MinClaimTokens,
		},
		Confidence: usecase.ConfidenceConfig{
			RerankScoreMin: cfg.RerankScoreMin,
			RerankScoreMax: cfg.RerankScoreMax,
		},
		GenerationTimeout: time.Duration(cfg.GenerationTimeoutSeconds) * time.Second,
	})

	return &App{
		Config:   cfg,
		Answerer: answerer,
		Metrics:  pipelineMetrics,

		closeFn: func() {
			publisher.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
