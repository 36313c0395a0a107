package middleware

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"learn.ringlimiter/internal/ringwindow"
	"learn.ringlimiter/internal/stats"
	"learn.ringlimiter/metrics"
	"learn.ringlimiter/types"
)

// ErrorBody is the JSON body of every rejected request.
type ErrorBody struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// RateLimitMiddleware admits requests through a limiter before calling the
// wrapped handler.
type RateLimitMiddleware struct {
	limiter    types.Limiter
	metrics    *metrics.RateLimitMetrics
	stats      stats.Recorder
	limiterKey string
	budget     int
}

// NewRateLimitMiddleware creates a new RateLimitMiddleware. recorder may be nil.
func NewRateLimitMiddleware(limiter types.Limiter, m *metrics.RateLimitMetrics, recorder stats.Recorder, limiterKey string, budget int) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter:    limiter,
		metrics:    m,
		stats:      recorder,
		limiterKey: limiterKey,
		budget:     budget,
	}
}

// Handle wraps an http.HandlerFunc with rate limiting logic.
// identifierFunc extracts the identifier (e.g., IP address) from the request.
func (m *RateLimitMiddleware) Handle(next http.HandlerFunc, identifierFunc func(*http.Request) string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := GetRequestID(r.Context())
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(m.budget))

		identifier := identifierFunc(r)
		if identifier == "" {
			log.Warn().Str("limiter_key", m.limiterKey).Str("remote_addr", r.RemoteAddr).Str("request_id", requestID).Msg("Middleware: Could not extract identifier, denying request")
			m.metrics.RecordRequest(false)
			WriteJSON(w, http.StatusInternalServerError, ErrorBody{Status: "failed", Error: "could not identify client"})
			return
		}

		err := m.limiter.Check(r.Context(), identifier)
		var limitErr *ringwindow.LimitExceededError
		switch {
		case err == nil:
			m.metrics.RecordRequest(true)
			m.record(r, identifier, true)
			next.ServeHTTP(w, r)
		case errors.As(err, &limitErr):
			m.metrics.RecordRequest(false)
			m.record(r, identifier, false)
			log.Info().Str("limiter_key", m.limiterKey).Str("identifier", identifier).Str("request_id", requestID).Msg("Middleware: Request rate limited")
			// Upper bound: the oldest event may leave the window sooner.
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(limitErr.Window))))
			WriteJSON(w, http.StatusTooManyRequests, ErrorBody{Status: "failed", Error: limitErr.Error()})
		default:
			m.metrics.RecordRequest(false)
			log.Error().Err(err).Str("limiter_key", m.limiterKey).Str("identifier", identifier).Str("request_id", requestID).Msg("Middleware: Error checking rate limit")
			WriteJSON(w, http.StatusInternalServerError, ErrorBody{Status: "failed", Error: err.Error()})
		}
	}
}

// record tallies the decision; failures are logged and never change the response.
func (m *RateLimitMiddleware) record(r *http.Request, identifier string, allowed bool) {
	if m.stats == nil {
		return
	}
	ev := stats.Event{
		LimiterKey: m.limiterKey,
		Identifier: identifier,
		Allowed:    allowed,
		At:         time.Now(),
	}
	if err := m.stats.Record(r.Context(), ev); err != nil {
		log.Warn().Err(err).Str("limiter_key", m.limiterKey).Str("identifier", identifier).Msg("Middleware: Failed to record stats")
	}
}

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Int("status", code).Msg("Middleware: Failed to encode response")
	}
}
