package tei

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/agentrag/reasoning-engine/internal/infrastructure/resilience"
)

// Client scores (query, text) pairs against a text-embeddings-inference
// style reranker over POST /rerank. It implements
// ports.RelevanceScorer.
type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		executor:   executor,
	}
}

type rerankRequest struct {
	Query string   `json:"query"`
	Texts []string `json:"texts"`
}

type rerankResult struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

func (c *Client) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var results []rerankResult
	call := func(callCtx context.Context) error {
		var callErr error
		results, callErr = c.rerank(callCtx, query, texts)
		return callErr
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "rerank", call, classifyError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, err
	}

	// Responses come back sorted by score; restore input order.
	scores := make([]float64, len(texts))
	seen := make([]bool, len(texts))
	for _, result := range results {
		if result.Index < 0 || result.Index >= len(texts) {
			return nil, fmt.Errorf("rerank index %d out of range", result.Index)
		}
		if seen[result.Index] {
			return nil, fmt.Errorf("rerank index %d duplicated", result.Index)
		}
		seen[result.Index] = true
		scores[result.Index] = result.Score
	}
	if len(results) != len(texts) {
		return nil, fmt.Errorf("rerank count mismatch: want %d, got %d", len(texts), len(results))
	}
	return scores, nil
}

func (c *Client) rerank(ctx context.Context, query string, texts []string) ([]rerankResult, error) {
	body, err := json.Marshal(rerankRequest{Query: query, Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &statusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(raw)),
		}
	}

	var results []rerankResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}
	return results, nil
}

type statusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *statusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("rerank status: %s", e.Status)
	}
	return fmt.Sprintf("rerank status: %s: %s", e.Status, e.Body)
}
