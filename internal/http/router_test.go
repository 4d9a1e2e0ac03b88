package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/3ngin33r0d1y/API-Monitoring/internal/compliance"
	"github.com/3ngin33r0d1y/API-Monitoring/internal/service/ingest"
	"github.com/3ngin33r0d1y/API-Monitoring/internal/ws"
)

type fakeMonitor struct {
	latest     *compliance.Result
	refreshErr error
	refreshed  chan struct{}
}

func (f *fakeMonitor) Latest() (*compliance.Result, bool) {
	return f.latest, f.latest != nil
}

func (f *fakeMonitor) Refresh(ctx context.Context) (*compliance.Result, error) {
	if f.refreshed != nil {
		defer func() { f.refreshed <- struct{}{} }()
	}
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.latest, nil
}

type fakeIngestor struct {
	batches [][]ingest.RecordInput
	err     error
}

func (f *fakeIngestor) Ingest(ctx context.Context, batch []ingest.RecordInput) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.batches = append(f.batches, batch)
	return len(batch), nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testResult() *compliance.Result {
	return &compliance.Result{
		Services: []compliance.ServiceStatus{
			{ServiceName: "pay-api", Compliant: false},
			{ServiceName: "auth-api", Compliant: true},
		},
		Violations: []compliance.Violation{
			{ServiceName: "pay-api", Severity: compliance.SeverityCritical, Message: "PROD version (2.1.0) is higher than UAT version (2.0.0)"},
			{ServiceName: "pay-api", Severity: compliance.SeverityWarning, Message: "OAT version (2.1.0) is higher than UAT version (2.0.0)"},
		},
		TotalServices:          2,
		ServicesWithViolations: 1,
		CompliantServices:      1,
		ScorePercent:           50,
		ComputedAt:             time.Date(2026, time.March, 17, 9, 0, 0, 0, time.UTC),
	}
}

func newTestRouter(monitor *fakeMonitor, ingestor *fakeIngestor, token string) *Router {
	return NewRouter(discardLogger(), monitor, ingestor, nil, NewMemoryRateLimiter(), token, nil)
}

func TestComplianceEndpointPendingBeforeFirstRun(t *testing.T) {
	router := newTestRouter(&fakeMonitor{}, &fakeIngestor{}, "secret")
	defer router.Close()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/compliance", nil))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202 before first evaluation, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if body["status"] != "pending" {
		t.Fatalf("expected pending status, got %q", body["status"])
	}
}

func TestComplianceEndpointReturnsLatestResult(t *testing.T) {
	router := newTestRouter(&fakeMonitor{latest: testResult()}, &fakeIngestor{}, "secret")
	defer router.Close()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/compliance", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var result compliance.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if result.ScorePercent != 50 || result.TotalServices != 2 {
		t.Fatalf("unexpected result payload: %+v", result)
	}
	if rec.Header().Get("X-RateLimit-Limit") == "" {
		t.Fatal("expected rate limit headers on read endpoints")
	}
}

func TestRefreshEndpoint(t *testing.T) {
	monitor := &fakeMonitor{latest: testResult()}
	router := newTestRouter(monitor, &fakeIngestor{}, "secret")
	defer router.Close()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/compliance/refresh", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/compliance/refresh", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET, got %d", rec.Code)
	}
}

func TestRefreshEndpointSurfacesEvaluationError(t *testing.T) {
	monitor := &fakeMonitor{refreshErr: &compliance.EvaluationError{Err: errors.New("broken invariant")}}
	router := newTestRouter(monitor, &fakeIngestor{}, "secret")
	defer router.Close()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/compliance/refresh", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for evaluation error, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "compliance evaluation failed") {
		t.Fatalf("expected evaluation error message, got %s", rec.Body.String())
	}
}

func TestViolationsEndpointFiltersBySeverity(t *testing.T) {
	router := newTestRouter(&fakeMonitor{latest: testResult()}, &fakeIngestor{}, "secret")
	defer router.Close()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/violations?severity=critical", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Violations []compliance.Violation `json:"violations"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if len(body.Violations) != 1 || body.Violations[0].Severity != compliance.SeverityCritical {
		t.Fatalf("expected only the critical violation, got %+v", body.Violations)
	}
}

func TestCollectorRecordsRequiresToken(t *testing.T) {
	router := newTestRouter(&fakeMonitor{}, &fakeIngestor{}, "secret")
	defer router.Close()

	req := httptest.NewRequest(http.MethodPost, "/collector/records", strings.NewReader(`{"records":[{"service_name":"pay-api"}]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/collector/records", strings.NewReader(`{}`))
	req.Header.Set("X-Collector-Token", "wrong")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", rec.Code)
	}
}

func TestCollectorRecordsRejectedWhenTokenUnconfigured(t *testing.T) {
	router := newTestRouter(&fakeMonitor{}, &fakeIngestor{}, "")
	defer router.Close()

	req := httptest.NewRequest(http.MethodPost, "/collector/records", strings.NewReader(`{}`))
	req.Header.Set("X-Collector-Token", "anything")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 when token unconfigured, got %d", rec.Code)
	}
}

func TestCollectorRecordsIngestsAndTriggersRefresh(t *testing.T) {
	monitor := &fakeMonitor{latest: testResult(), refreshed: make(chan struct{}, 1)}
	ingestor := &fakeIngestor{}
	router := newTestRouter(monitor, ingestor, "secret")
	defer router.Close()

	body := `{"records":[{"service_name":"pay-api","environment":"prod","version":"2.1.0"},{"service_name":"pay-api","environment":"uat","version":"2.0.0"}]}`
	req := httptest.NewRequest(http.MethodPost, "/collector/records", strings.NewReader(body))
	req.Header.Set("X-Collector-Token", "secret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Stored int `json:"stored"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if resp.Stored != 2 {
		t.Fatalf("expected 2 stored, got %d", resp.Stored)
	}
	if len(ingestor.batches) != 1 || len(ingestor.batches[0]) != 2 {
		t.Fatalf("unexpected ingested batches: %+v", ingestor.batches)
	}

	select {
	case <-monitor.refreshed:
	case <-time.After(time.Second):
		t.Fatal("expected a refresh after ingest")
	}
}

func TestCollectorRecordsEmptyBatch(t *testing.T) {
	router := newTestRouter(&fakeMonitor{}, &fakeIngestor{err: ingest.ErrEmptyBatch}, "secret")
	defer router.Close()

	req := httptest.NewRequest(http.MethodPost, "/collector/records", strings.NewReader(`{"records":[]}`))
	req.Header.Set("X-Collector-Token", "secret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty batch, got %d", rec.Code)
	}
}

func TestHealthzReportsDatabaseFailure(t *testing.T) {
	healthErr := errors.New("pool exhausted")
	router := NewRouter(discardLogger(), &fakeMonitor{}, &fakeIngestor{}, nil, NewMemoryRateLimiter(), "secret", func(ctx context.Context) error {
		return healthErr
	})
	defer router.Close()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when db ping fails, got %d", rec.Code)
	}
}

func TestComplianceWSSubscribeDuringBroadcasts(t *testing.T) {
	hub := ws.NewHub()
	router := NewRouter(discardLogger(), &fakeMonitor{latest: testResult()}, &fakeIngestor{}, hub, NewMemoryRateLimiter(), "secret", nil)
	defer router.Close()

	srv := httptest.NewServer(router)
	defer srv.Close()

	payload, err := json.Marshal(testResult())
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}

	// Broadcast continuously so hub pushes overlap the initial-state send
	// that happens while the subscription is being set up.
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				hub.Broadcast(ws.StreamCompliance, payload)
			}
		}
	}()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/compliance"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	for i := 0; i < 5; i++ {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read %d failed: %v", i, err)
		}
		var result compliance.Result
		if err := json.Unmarshal(msg, &result); err != nil {
			t.Fatalf("frame %d is not a valid result: %v", i, err)
		}
		if result.TotalServices != 2 {
			t.Fatalf("unexpected frame %d: %+v", i, result)
		}
	}

	close(stop)
	wg.Wait()
}

func TestMemoryRateLimiterWindow(t *testing.T) {
	limiter := NewMemoryRateLimiter()
	defer limiter.Close()

	for i := 0; i < 3; i++ {
		if decision := limiter.Allow("ip:1.2.3.4", 3, time.Minute); !decision.allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if decision := limiter.Allow("ip:1.2.3.4", 3, time.Minute); decision.allowed {
		t.Fatal("fourth request should be rejected")
	}
	if decision := limiter.Allow("ip:5.6.7.8", 3, time.Minute); !decision.allowed {
		t.Fatal("different key must not share the window")
	}
}
