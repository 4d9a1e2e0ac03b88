package httpx

import (
	"bufio"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/3ngin33r0d1y/API-Monitoring/internal/compliance"
	"github.com/3ngin33r0d1y/API-Monitoring/internal/service/ingest"
	"github.com/3ngin33r0d1y/API-Monitoring/internal/ws"
)

// ComplianceSource exposes the latest compliance result and on-demand
// refreshes.
type ComplianceSource interface {
	Latest() (*compliance.Result, bool)
	Refresh(ctx context.Context) (*compliance.Result, error)
}

// RecordIngestor accepts collector record batches.
type RecordIngestor interface {
	Ingest(ctx context.Context, batch []ingest.RecordInput) (int, error)
}

// Router wires HTTP endpoints to services.
type Router struct {
	mux            *http.ServeMux
	logger         *slog.Logger
	monitor        ComplianceSource
	ingest         RecordIngestor
	hub            *ws.Hub
	upgrader       websocket.Upgrader
	limiter        RateLimiter
	collectorToken string
	dbHealth       func(context.Context) error

	metricsOnce        sync.Once
	metricsInitialized bool
	requestTotal       *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
	rateLimitHits      *prometheus.CounterVec
}

const (
	rateWindowDefault    = time.Minute
	rateWindowRealtime   = 30 * time.Second
	rateLimitRead        = 120
	rateLimitRefresh     = 12
	rateLimitWebsocket   = 30
	rateLimitCollector   = 600
	healthCheckTimeout   = 2 * time.Second
	ingestRefreshTimeout = 10 * time.Second
)

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, monitor ComplianceSource, ingestSvc RecordIngestor, hub *ws.Hub, limiter RateLimiter, collectorToken string, dbHealth func(context.Context) error) *Router {
	r := &Router{
		mux:     http.NewServeMux(),
		logger:  logger,
		monitor: monitor,
		ingest:  ingestSvc,
		hub:     hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		limiter:        limiter,
		collectorToken: strings.TrimSpace(collectorToken),
		dbHealth:       dbHealth,
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	r.initMetrics()
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	r.mux.HandleFunc("/healthz", r.audit(r.handleHealthz))
	r.mux.Handle("/metrics", promhttp.Handler())
	r.mux.HandleFunc("/api/compliance", r.audit(r.withRateLimit("/api/compliance", rateLimitRead, rateWindowDefault, r.handleCompliance)))
	r.mux.HandleFunc("/api/compliance/refresh", r.audit(r.withRateLimit("/api/compliance/refresh", rateLimitRefresh, rateWindowDefault, r.handleRefresh)))
	r.mux.HandleFunc("/api/violations", r.audit(r.withRateLimit("/api/violations", rateLimitRead, rateWindowDefault, r.handleViolations)))
	r.mux.HandleFunc("/api/services", r.audit(r.withRateLimit("/api/services", rateLimitRead, rateWindowDefault, r.handleServices)))
	r.mux.HandleFunc("/collector/records", r.audit(r.withRateLimit("/collector/records", rateLimitCollector, rateWindowDefault, r.handleCollectorRecords)))
	r.mux.HandleFunc("/ws/compliance", r.audit(r.withRateLimit("/ws/compliance", rateLimitWebsocket, rateWindowRealtime, r.handleComplianceWS)))
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	if r.dbHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.dbHealth(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (r *Router) handleCompliance(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	result, ok := r.monitor.Latest()
	if !ok {
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "pending"})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (r *Router) handleRefresh(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	result, err := r.monitor.Refresh(req.Context())
	if err != nil {
		var evalErr *compliance.EvaluationError
		if errors.As(err, &evalErr) {
			writeError(w, http.StatusInternalServerError, evalErr.Error())
			return
		}
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (r *Router) handleViolations(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	result, ok := r.monitor.Latest()
	if !ok {
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "pending"})
		return
	}
	severity := strings.TrimSpace(req.URL.Query().Get("severity"))
	violations := result.Violations
	if severity != "" {
		filtered := make([]compliance.Violation, 0, len(violations))
		for _, v := range violations {
			if v.Severity == severity {
				filtered = append(filtered, v)
			}
		}
		violations = filtered
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"violations":  violations,
		"computed_at": result.ComputedAt,
	})
}

func (r *Router) handleServices(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	result, ok := r.monitor.Latest()
	if !ok {
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "pending"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"services":    result.Services,
		"computed_at": result.ComputedAt,
	})
}

func (r *Router) handleCollectorRecords(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	if !r.verifyCollectorToken(w, req) {
		return
	}
	var payload struct {
		Records []ingest.RecordInput `json:"records"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	stored, err := r.ingest.Ingest(req.Context(), payload.Records)
	if err != nil {
		if errors.Is(err, ingest.ErrEmptyBatch) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Re-evaluate off the request path so slow evaluations never block
	// collectors.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), ingestRefreshTimeout)
		defer cancel()
		if _, err := r.monitor.Refresh(ctx); err != nil {
			r.logger.Error("refresh after ingest failed", "error", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]any{"status": "accepted", "stored": stored})
}

func (r *Router) handleComplianceWS(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	if r.hub == nil {
		writeError(w, http.StatusServiceUnavailable, "streaming disabled")
		return
	}
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	client := ws.NewClient(conn, r.logger)
	r.hub.Register(ws.StreamCompliance, client)

	// New subscribers get the current state right away instead of waiting
	// for the next refresh.
	if result, ok := r.monitor.Latest(); ok {
		if payload, err := json.Marshal(result); err == nil {
			_ = client.Send(payload)
		}
	}

	go func() {
		defer func() {
			r.hub.Unregister(ws.StreamCompliance, client)
			client.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

// verifyCollectorToken ensures collector pushes include the configured
// secret.
func (r *Router) verifyCollectorToken(w http.ResponseWriter, req *http.Request) bool {
	expected := r.collectorToken
	if expected == "" {
		r.logger.Error("collector token not configured", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "collector authentication misconfigured")
		return false
	}
	token := strings.TrimSpace(req.Header.Get("X-Collector-Token"))
	if len(token) != len(expected) || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
		r.logger.Warn("collector token mismatch", "path", req.URL.Path)
		writeError(w, http.StatusUnauthorized, "invalid collector token")
		return false
	}
	return true
}

func (r *Router) audit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		duration := time.Since(start)
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if reqID := strings.TrimSpace(req.Header.Get("X-Request-ID")); reqID != "" {
			fields = append(fields, "request_id", reqID)
		}
		actor := "dashboard"
		if strings.HasPrefix(req.URL.Path, "/collector/") {
			actor = "collector"
		}
		fields = append(fields, "actor", actor)

		r.recordRequestMetrics(req.Method, req.URL.Path, status, duration)

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
