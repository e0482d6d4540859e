package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketqa/internal/logger"
	"marketqa/internal/metrics"
	"marketqa/internal/model"
)

// fakeQA answers from canned results and records the trace IDs it saw.
type fakeQA struct {
	ask     model.QueryResult
	analyze model.QueryResult
	traces  []string
}

func (f *fakeQA) Ask(ctx context.Context, text string) model.QueryResult {
	f.traces = append(f.traces, logger.TraceID(ctx))
	if text == "panic" {
		panic("boom")
	}
	return f.ask
}

func (f *fakeQA) Analyze(ctx context.Context, text string) model.QueryResult {
	return f.analyze
}

func table() *model.TabularRows {
	return &model.TabularRows{
		Intent:   model.IntentPriceHistory,
		Headers:  []string{"Date", "Close"},
		Rows:     [][]any{{"2024-06-28", 399.0}},
		Rendered: "+---+\n",
	}
}

func newTestRouter(qa *fakeQA, cfg Config) (http.Handler, *metrics.Metrics, *metrics.HealthStatus) {
	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	health.SetStoreOK(true)
	return NewRouter(qa, health, prom, cfg), prom, health
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeAnswer(t *testing.T, rec *httptest.ResponseRecorder) Answer {
	t.Helper()
	var a Answer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a), rec.Body.String())
	return a
}

func TestAsk_Table(t *testing.T) {
	qa := &fakeQA{ask: table()}
	h, prom, _ := newTestRouter(qa, Config{})

	rec := post(t, h, "/api/v1/ask", `{"question":"price (AAPL) 1 day"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	a := decodeAnswer(t, rec)
	assert.Equal(t, "table", a.Kind)
	assert.Equal(t, "+---+\n", a.Text)
	require.NotNil(t, a.Table)
	assert.Equal(t, []string{"Date", "Close"}, a.Table.Headers)
	assert.Nil(t, a.Error)

	id := rec.Header().Get(requestIDHeader)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, a.RequestID)
	assert.Equal(t, []string{id}, qa.traces, "request ID reaches the pipeline as trace ID")

	assert.Equal(t, 1.0, testutil.ToFloat64(prom.HTTPRequests.WithLabelValues("POST /api/v1/ask", "200")))
}

func TestAsk_RequestIDPropagated(t *testing.T) {
	h, _, _ := newTestRouter(&fakeQA{ask: table()}, Config{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ask", strings.NewReader(`{"question":"x"}`))
	req.Header.Set(requestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get(requestIDHeader))
	assert.Equal(t, "req-42", decodeAnswer(t, rec).RequestID)
}

func TestAnalyze_Report(t *testing.T) {
	qa := &fakeQA{analyze: &model.AnalysisReport{Ticker: "AAPL", Summary: "Technical Analysis Summary for AAPL:"}}
	h, _, _ := newTestRouter(qa, Config{})

	rec := post(t, h, "/api/v1/analyze", `{"question":"analysis (AAPL)"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	a := decodeAnswer(t, rec)
	assert.Equal(t, "analysis", a.Kind)
	require.NotNil(t, a.Report)
	assert.Equal(t, "AAPL", a.Report.Ticker)
}

func TestAsk_ErrorStatus(t *testing.T) {
	qa := &fakeQA{ask: &model.ErrorMessage{ErrKind: model.ErrNoTickerFound}}
	h, _, _ := newTestRouter(qa, Config{})

	rec := post(t, h, "/api/v1/ask", `{"question":"price"}`)
	assert.Equal(t, http.StatusOK, rec.Code, "unanswerable input is still an answer")
	a := decodeAnswer(t, rec)
	assert.Equal(t, "error", a.Kind)
	require.NotNil(t, a.Error)
	assert.Equal(t, model.ErrNoTickerFound, a.Error.ErrKind)
	assert.Contains(t, a.Text, "No ticker found")

	qa.ask = &model.ErrorMessage{ErrKind: model.ErrUpstreamQuery}
	rec = post(t, h, "/api/v1/ask", `{"question":"price (AAPL)"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAsk_BadRequests(t *testing.T) {
	h, _, _ := newTestRouter(&fakeQA{ask: table()}, Config{})

	assert.Equal(t, http.StatusBadRequest, post(t, h, "/api/v1/ask", `{`).Code)
	assert.Equal(t, http.StatusBadRequest, post(t, h, "/api/v1/ask", `{"question":"  "}`).Code)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ask", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRecoverPanics(t *testing.T) {
	h, _, _ := newTestRouter(&fakeQA{}, Config{})
	rec := post(t, h, "/api/v1/ask", `{"question":"panic"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal server error")
}

func TestRateLimit(t *testing.T) {
	h, prom, _ := newTestRouter(&fakeQA{ask: table()}, Config{RateLimitRPS: 0.001, RateLimitBurst: 2})

	codes := make([]int, 3)
	for i := range codes {
		codes[i] = post(t, h, "/api/v1/ask", `{"question":"x"}`).Code
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
	assert.Equal(t, 1.0, testutil.ToFloat64(prom.RateLimited))

	// Another client has its own bucket.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ask", strings.NewReader(`{"question":"x"}`))
	req.RemoteAddr = "10.0.0.9:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	h, _, health := newTestRouter(&fakeQA{}, Config{})

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	rec := get("/api/v1/health")
	require.Equal(t, http.StatusOK, rec.Code)
	var rep metrics.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.Equal(t, "healthy", rep.Status)

	health.SetStoreOK(false)
	rec = get("/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"unhealthy"`)

	rec = get("/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "marketqa_http_requests_total")
}

func TestWebSocket(t *testing.T) {
	qa := &fakeQA{
		ask:     table(),
		analyze: &model.AnalysisReport{Ticker: "AAPL", Summary: "summary"},
	}
	h, _, _ := newTestRouter(qa, Config{})
	srv := httptest.NewServer(h)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	roundTrip := func(req WSRequest) WSResponse {
		t.Helper()
		require.NoError(t, conn.WriteJSON(req))
		var out WSResponse
		require.NoError(t, conn.ReadJSON(&out))
		return out
	}

	out := roundTrip(WSRequest{ID: "1", Question: "price (AAPL)"})
	assert.Equal(t, "1", out.ID)
	assert.Equal(t, "table", out.Kind)
	require.NotNil(t, out.Table)

	out = roundTrip(WSRequest{ID: "2", Type: "analyze", Question: "analysis (AAPL)"})
	assert.Equal(t, "2", out.ID)
	assert.Equal(t, "analysis", out.Kind)
	assert.Equal(t, "summary", out.Text)

	out = roundTrip(WSRequest{ID: "3", Type: "subscribe", Question: "x"})
	assert.Equal(t, "error", out.Kind)
	assert.Equal(t, "unknown type subscribe", out.Text)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(raw), "invalid JSON")
}

func TestStatusRecorderHijackUnsupported(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder(), code: http.StatusOK}
	_, _, err := rec.Hijack()
	assert.Error(t, err)

	rec.WriteHeader(http.StatusTeapot)
	rec.WriteHeader(http.StatusOK)
	assert.Equal(t, http.StatusTeapot, rec.code)
}
