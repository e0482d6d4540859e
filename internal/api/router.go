// Package api exposes the question pipeline over HTTP and WebSocket.
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"marketqa/internal/metrics"
	"marketqa/internal/model"
)

// maxQuestionBytes bounds request bodies and WebSocket messages.
const maxQuestionBytes = 4096

// Answerer is the question pipeline as seen by the API.
type Answerer interface {
	Ask(ctx context.Context, text string) model.QueryResult
	Analyze(ctx context.Context, text string) model.QueryResult
}

// Config tunes the router. Zero rate values disable rate limiting.
type Config struct {
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter sets up the HTTP routes of the API server:
//
//	POST /api/v1/ask       data question, returns a table or error
//	POST /api/v1/analyze   technical analysis, returns a report or error
//	GET  /api/v1/ws        one JSON request per message, one answer each
//	GET  /api/v1/health    dependency health (also /healthz)
//	GET  /metrics          Prometheus exposition
func NewRouter(qa Answerer, health *metrics.HealthStatus, prom *metrics.Metrics, cfg Config) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/ask", questionHandler(qa.Ask))
	mux.HandleFunc("POST /api/v1/analyze", questionHandler(qa.Analyze))
	mux.Handle("GET /api/v1/ws", &wsHandler{qa: qa, prom: prom})

	mux.Handle("GET /api/v1/health", health)
	mux.Handle("GET /healthz", health)
	if prom != nil {
		mux.Handle("GET /metrics", prom.Handler())
	}

	var h http.Handler = mux
	if cfg.RateLimitRPS > 0 {
		h = rateLimit(h, cfg.RateLimitRPS, cfg.RateLimitBurst, prom)
	}
	h = instrument(h, prom)
	h = recoverPanics(h)
	return requestID(h)
}

// questionHandler decodes an AskRequest, runs answer and writes the result.
func questionHandler(answer func(context.Context, string) model.QueryResult) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		var req AskRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, maxQuestionBytes)).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON"})
			return
		}
		if strings.TrimSpace(req.Question) == "" {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "question is required"})
			return
		}

		res := answer(r.Context(), req.Question)
		writeJSON(w, statusOf(res), NewAnswer(res, w.Header().Get(requestIDHeader)))
	}
}

// statusOf maps a result to an HTTP status. Questions that could not be
// answered from the user's input are still a 200 answer; store failures
// are reported as 503.
func statusOf(res model.QueryResult) int {
	if msg, ok := res.(*model.ErrorMessage); ok {
		switch msg.ErrKind {
		case model.ErrUpstreamQuery, model.ErrSchemaMissing:
			return http.StatusServiceUnavailable
		}
	}
	return http.StatusOK
}

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
