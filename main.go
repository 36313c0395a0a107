// Package main is the entry point for the rate limiter application.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	ratelimiter "learn.ringlimiter/api"
	"learn.ringlimiter/metrics"
	"learn.ringlimiter/middleware"
)

// main parses flags, loads the limiter configuration, sets up HTTP routes and
// serves until interrupted.
func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	port := flag.Int("p", 8000, "Port to run the HTTP server on")
	configPath := flag.String("config", "config.yaml", "Path to the configuration file")
	logLevelStr := flag.String("log-level", "info", "Logging level (trace, debug, info, warn, error, fatal, panic)")
	guardKey := flag.String("limiter", "api_rate_limit", "Limiter key guarding /time")
	flag.Parse()

	logLevel, err := zerolog.ParseLevel(*logLevelStr)
	if err != nil {
		log.Fatal().Err(err).Str("log_level", *logLevelStr).Msg("Invalid log level provided")
	}
	zerolog.SetGlobalLevel(logLevel)

	log.Info().Str("config_path", *configPath).Msg("Starting application initialization")

	instances, closer, err := ratelimiter.NewLimitersFromConfigPath(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config_path", *configPath).Msg("Application startup failed: Error initializing rate limiters from config")
	}
	defer func() {
		if err := closer.Close(); err != nil {
			log.Error().Err(err).Msg("Backend shutdown failed")
		}
	}()

	handler, err := newServer(instances, prometheus.DefaultRegisterer, prometheus.DefaultGatherer, *guardKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Application startup failed")
	}

	addr := fmt.Sprintf(":%d", *port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("address", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("address", addr).Msg("HTTP server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
}

// newServer wires every configured limiter into the HTTP routes:
//
//	GET /time, GET /      guarded by guardKey
//	GET /limit/{key}      guarded by the named limiter
//	GET /stats/{key}?id=  admission totals for one identifier
//	GET /unlimited        never limited
//	GET /metrics          Prometheus exposition
func newServer(instances map[string]ratelimiter.Instance, reg prometheus.Registerer, gatherer prometheus.Gatherer, guardKey string) (http.Handler, error) {
	if _, ok := instances[guardKey]; !ok {
		return nil, fmt.Errorf("rate limiter key '%s' not found in config (have: %s)", guardKey, strings.Join(instanceKeys(instances), ", "))
	}

	collectors := metrics.NewCollectors(reg)
	guarded := make(map[string]http.HandlerFunc, len(instances))
	for key, inst := range instances {
		m := metrics.NewRateLimitMetrics(collectors, key, inst.Config.Budget, inst.Config.WindowSeconds())
		mw := middleware.NewRateLimitMiddleware(inst.Limiter, m, inst.Stats, key, inst.Config.Budget)
		guarded[key] = mw.Handle(currentTime, getClientIP)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /time", guarded[guardKey])
	mux.HandleFunc("GET /{$}", guarded[guardKey])
	mux.HandleFunc("GET /limit/{key}", func(w http.ResponseWriter, r *http.Request) {
		h, ok := guarded[r.PathValue("key")]
		if !ok {
			middleware.WriteJSON(w, http.StatusNotFound, middleware.ErrorBody{Status: "failed", Error: "unknown limiter"})
			return
		}
		h(w, r)
	})
	mux.HandleFunc("GET /stats/{key}", func(w http.ResponseWriter, r *http.Request) {
		inst, ok := instances[r.PathValue("key")]
		if !ok {
			middleware.WriteJSON(w, http.StatusNotFound, middleware.ErrorBody{Status: "failed", Error: "unknown limiter"})
			return
		}
		id := r.URL.Query().Get("id")
		if id == "" {
			middleware.WriteJSON(w, http.StatusBadRequest, middleware.ErrorBody{Status: "failed", Error: "missing 'id' query parameter"})
			return
		}
		totals, err := inst.Stats.Totals(r.Context(), id)
		if err != nil {
			log.Error().Err(err).Str("limiter_key", inst.Config.Key).Str("identifier", id).Msg("Failed to read stats")
			middleware.WriteJSON(w, http.StatusBadGateway, middleware.ErrorBody{Status: "failed", Error: err.Error()})
			return
		}
		middleware.WriteJSON(w, http.StatusOK, totals)
	})
	mux.HandleFunc("GET /unlimited", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "Unlimited! Let's Go!")
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return middleware.RequestID(mux), nil
}

// currentTime reports the server's wall-clock time.
func currentTime(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status":       "ok",
		"current_time": time.Now().Format("2006-01-02 15:04:05.000000"),
	})
}

func instanceKeys(instances map[string]ratelimiter.Instance) []string {
	keys := make([]string, 0, len(instances))
	for k := range instances {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// getClientIP extracts the client's IP address from the request.
// It checks X-Forwarded-For, X-Real-IP headers, and finally the request's RemoteAddr.
// The forwarding headers are trusted as sent, so the server must sit behind a
// proxy that overwrites them; otherwise a client can pick its own identifier,
// escape its per_client budget and create an unbounded number of streams.
func getClientIP(r *http.Request) string {
	ip := r.Header.Get("X-Forwarded-For")
	if ip != "" {
		return strings.TrimSpace(strings.Split(ip, ",")[0])
	}

	ip = r.Header.Get("X-Real-IP")
	if ip != "" {
		return ip
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
