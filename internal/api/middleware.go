package api

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"marketqa/internal/logger"
	"marketqa/internal/metrics"
)

const requestIDHeader = "X-Request-ID"

// requestID tags each request with an ID taken from X-Request-ID or newly
// generated, echoes it on the response and stores it as the trace ID.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = logger.GenerateTraceID()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logger.WithTraceID(r.Context(), id)))
	})
}

func recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				logger.Component(r.Context(), "api").Error().
					Interface("panic", err).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Msg("panic recovered")
				writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// instrument logs each request and counts it by route pattern and status.
func instrument(next http.Handler, prom *metrics.Metrics) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		if prom != nil {
			prom.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.code)).Inc()
		}
		if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
			return
		}
		logger.Component(r.Context(), "api").Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.code).
			Dur("latency", time.Since(start)).
			Msg("http request")
	})
}

// rateLimit applies a token bucket per client IP. Idle buckets expire
// after ten minutes.
func rateLimit(next http.Handler, rps float64, burst int, prom *metrics.Metrics) http.Handler {
	if burst <= 0 {
		burst = 1
	}
	limiters := cache.New(10*time.Minute, 20*time.Minute)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)

		var limiter *rate.Limiter
		if v, found := limiters.Get(ip); found {
			limiter = v.(*rate.Limiter)
		} else {
			limiter = rate.NewLimiter(rate.Limit(rps), burst)
			limiters.Set(ip, limiter, cache.DefaultExpiration)
		}

		if !limiter.Allow() {
			if prom != nil {
				prom.RateLimited.Inc()
			}
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// statusRecorder captures the response code. It passes Hijack through so
// WebSocket upgrades work behind it.
type statusRecorder struct {
	http.ResponseWriter
	code        int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.wroteHeader {
		s.code, s.wroteHeader = code, true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.code, s.wroteHeader = http.StatusSwitchingProtocols, true
	return hj.Hijack()
}

func (s *statusRecorder) Unwrap() http.ResponseWriter { return s.ResponseWriter }
