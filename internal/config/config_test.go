package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRetrievalDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("SEMANTIC_WEIGHT", "")
	t.Setenv("KEYWORD_WEIGHT", "")
	t.Setenv("FUSION_RRF_K", "")
	t.Setenv("CONTEXT_SIZE", "")
	t.Setenv("GUARDRAIL_CUTOFF", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SemanticWeight != 0.6 || cfg.KeywordWeight != 0.4 {
		t.Fatalf("unexpected default weights: %v/%v", cfg.SemanticWeight, cfg.KeywordWeight)
	}
	if cfg.FusionRRFK != 60 {
		t.Fatalf("expected default rrf k 60, got %d", cfg.FusionRRFK)
	}
	if cfg.ContextSize != 5 {
		t.Fatalf("expected default context size 5, got %d", cfg.ContextSize)
	}
	if cfg.GuardrailCutoff != 0.05 {
		t.Fatalf("expected default guardrail cutoff 0.05, got %v", cfg.GuardrailCutoff)
	}
	if cfg.NATSSubject != "answers.completed" {
		t.Fatalf("expected default nats subject, got %q", cfg.NATSSubject)
	}
}

func TestLoadScoringDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("SUPPORT_THRESHOLD", "")
	t.Setenv("PARTIAL_FLOOR", "")
	t.Setenv("MIN_CLAIM_TOKENS", "")
	t.Setenv("RERANK_SCORE_MIN", "")
	t.Setenv("RERANK_SCORE_MAX", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SupportThreshold != 0.5 || cfg.PartialFloor != 0.2 {
		t.Fatalf("unexpected default support thresholds: %v/%v", cfg.SupportThreshold, cfg.PartialFloor)
	}
	if cfg.MinClaimTokens != 4 {
		t.Fatalf("expected default min claim tokens 4, got %d", cfg.MinClaimTokens)
	}
	if cfg.RerankScoreMin != -10 || cfg.RerankScoreMax != 10 {
		t.Fatalf("unexpected default rerank score range: [%v, %v]", cfg.RerankScoreMin, cfg.RerankScoreMax)
	}
}

func TestLoadParsesEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("SEMANTIC_WEIGHT", "0.7")
	t.Setenv("KEYWORD_WEIGHT", "0.3")
	t.Setenv("CONTEXT_SIZE", "8")
	t.Setenv("SCORING_POOL_SIZE", "2")
	t.Setenv("PARTIAL_FLOOR", "0.3")
	t.Setenv("MIN_CLAIM_TOKENS", "6")
	t.Setenv("RERANK_SCORE_MIN", "-5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SemanticWeight != 0.7 || cfg.KeywordWeight != 0.3 {
		t.Fatalf("weight overrides not applied: %v/%v", cfg.SemanticWeight, cfg.KeywordWeight)
	}
	if cfg.ContextSize != 8 {
		t.Fatalf("expected context size 8, got %d", cfg.ContextSize)
	}
	if cfg.ScoringPoolSize != 2 {
		t.Fatalf("expected pool size 2, got %d", cfg.ScoringPoolSize)
	}
	if cfg.PartialFloor != 0.3 || cfg.MinClaimTokens != 6 {
		t.Fatalf("scoring overrides not applied: %v/%d", cfg.PartialFloor, cfg.MinClaimTokens)
	}
	if cfg.RerankScoreMin != -5 {
		t.Fatalf("expected rerank score min -5, got %v", cfg.RerankScoreMin)
	}
}

func TestLoadFileOverlayWinsOverEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("context_size: 3\nreranker_url: http://rerank:8081\n"), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("CONTEXT_SIZE", "9")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ContextSize != 3 {
		t.Fatalf("file overlay must win, got context size %d", cfg.ContextSize)
	}
	if cfg.RerankerURL != "http://rerank:8081" {
		t.Fatalf("file overlay not applied: %q", cfg.RerankerURL)
	}
	// Keys absent from the file keep their env-derived values.
	if cfg.APIPort != "8080" {
		t.Fatalf("unrelated keys must survive the overlay, got %q", cfg.APIPort)
	}
}

func TestLoadBadFileIsError(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
