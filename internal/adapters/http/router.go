package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/agentrag/reasoning-engine/internal/core/domain"
	"github.com/agentrag/reasoning-engine/internal/core/ports"
)

type Router struct {
	answerer ports.QueryAnswerer
	metrics  http.Handler
	logger   *slog.Logger
	limits   RateLimits
}

type RateLimits struct {
	PerSecond float64
	Burst     int
}

func NewRouter(answerer ports.QueryAnswerer, metrics http.Handler, logger *slog.Logger, limits RateLimits) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		answerer: answerer,
		metrics:  metrics,
		logger:   logger,
		limits:   limits,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics)
	}
	mux.HandleFunc("POST /v1/agents/{agent_id}/query", rt.answerQuery)

	handler := rateLimitMiddleware(rt.limits, mux)
	handler = accessLogMiddleware(rt.logger, handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type queryPayload struct {
	Question string   `json:"question"`
	Hints    []string `json:"hints,omitempty"`
}

func (rt *Router) answerQuery(w http.ResponseWriter, r *http.Request) {
	agentID := r.PathValue("agent_id")
	if strings.TrimSpace(agentID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "agent id is required"})
		return
	}

	var payload queryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(payload.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	result, err := rt.answerer.Answer(r.Context(), domain.QueryRequest{
		AgentID:  agentID,
		Question: payload.Question,
		Hints:    payload.Hints,
	})
	if err != nil {
		status := mapErrorToHTTPStatus(err)
		if status >= 500 {
			rt.logger.Error("query_failed",
				"request_id", requestIDFromContext(r.Context()),
				"agent_id", agentID,
				"error", err,
			)
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("write_response_failed", "error", err)
	}
}
