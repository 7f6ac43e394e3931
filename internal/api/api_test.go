package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shaiso/housekeeper/internal/abort"
	"github.com/shaiso/housekeeper/internal/domain"
	"github.com/shaiso/housekeeper/internal/leader"
	"github.com/shaiso/housekeeper/internal/poller"
	"github.com/shaiso/housekeeper/internal/telemetry"
)

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, error, map[string]string) {}

type nopAborter struct{}

func (nopAborter) Abort(context.Context, abort.Reason, error) {}

type testEnv struct {
	server     *httptest.Server
	handler    http.Handler
	group      *poller.Group
	leadership *leader.Static
	runs       *atomic.Int32

	mu        sync.Mutex
	checkErr  error
	actionErr error // ctx.Err(), который видело действие
}

func (e *testEnv) setCheckErr(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.checkErr = err
}

func (e *testEnv) check(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.checkErr
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		group:      poller.NewGroup(),
		leadership: leader.NewStatic(true),
		runs:       &atomic.Int32{},
	}

	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)

	p, err := poller.New(poller.Config{
		Name:     "cleanup",
		Interval: time.Hour,
		Action: poller.ActionFunc(func(ctx context.Context) error {
			env.mu.Lock()
			env.actionErr = ctx.Err()
			env.mu.Unlock()
			env.runs.Add(1)
			return ctx.Err()
		}),
		Leadership: env.leadership,
		Notifier:   nopNotifier{},
		Abort:      nopAborter{},
		Logger:     telemetry.DiscardLogger(),
		Metrics:    metrics,
	})
	if err != nil {
		t.Fatalf("poller.New: %v", err)
	}
	if err := env.group.Add(p); err != nil {
		t.Fatalf("group.Add: %v", err)
	}

	h := NewHandler(Config{
		Pollers: env.group,
		Leader:  env.leadership,
		Checks: map[string]ReadinessCheck{
			"database": env.check,
		},
		Gatherer: reg,
		Logger:   telemetry.DiscardLogger(),
	})

	env.handler = h.Routes()
	env.server = httptest.NewServer(env.handler)
	t.Cleanup(env.server.Close)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string) (*http.Response, []byte) {
	t.Helper()

	req, err := http.NewRequest(method, e.server.URL+path, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, body
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var health HealthResponse
	if err := json.Unmarshal(body, &health); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if health.Status != "ok" || !health.Leader {
		t.Errorf("unexpected health: %+v", health)
	}
}

func TestReadyz(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodGet, "/readyz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	env.setCheckErr(errors.New("connection refused"))
	resp, body := env.do(t, http.MethodGet, "/readyz")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}

	var ready ReadyResponse
	if err := json.Unmarshal(body, &ready); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ready.Checks["database"] != "connection refused" {
		t.Errorf("unexpected checks: %+v", ready.Checks)
	}
}

func TestListPollers(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/api/v1/pollers")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var list struct {
		Data  []poller.Status `json:"data"`
		Total int             `json:"total"`
	}
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if list.Total != 1 || list.Data[0].Name != "cleanup" || list.Data[0].State != domain.PollerStateIdle {
		t.Errorf("unexpected list: %+v", list)
	}
}

func TestGetPoller_NotFound(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/api/v1/pollers/missing")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if errResp.Error.Code != ErrCodeNotFound {
		t.Errorf("expected NOT_FOUND, got %s", errResp.Error.Code)
	}
}

func TestTickPoller(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/v1/pollers/cleanup/tick")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}

	var data struct {
		Data TickResponse `json:"data"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data.Data.Outcome != domain.TickSucceeded {
		t.Errorf("expected succeeded, got %s", data.Data.Outcome)
	}
	if env.runs.Load() != 1 {
		t.Errorf("expected action to run once, got %d", env.runs.Load())
	}
}

func TestTickPoller_ClientDisconnectDoesNotCancelTick(t *testing.T) {
	env := newTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/pollers/cleanup/tick", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	env.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var data struct {
		Data TickResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data.Data.Outcome != domain.TickSucceeded {
		t.Errorf("expected succeeded, got %s", data.Data.Outcome)
	}

	env.mu.Lock()
	defer env.mu.Unlock()
	if env.actionErr != nil {
		t.Errorf("action saw canceled context: %v", env.actionErr)
	}
}

func TestTickPoller_NotLeaderSkips(t *testing.T) {
	env := newTestEnv(t)
	env.leadership.Set(false)

	_, body := env.do(t, http.MethodPost, "/api/v1/pollers/cleanup/tick")

	var data struct {
		Data TickResponse `json:"data"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data.Data.Outcome != domain.TickSkipped {
		t.Errorf("expected skipped, got %s", data.Data.Outcome)
	}
	if env.runs.Load() != 0 {
		t.Error("action must not run on non-leader")
	}
}

func TestTickPoller_Stopped(t *testing.T) {
	env := newTestEnv(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := env.group.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	resp, _ := env.do(t, http.MethodPost, "/api/v1/pollers/cleanup/tick")
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestMetricsAndMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/v1/pollers/cleanup/tick")

	resp, body := env.do(t, http.MethodGet, "/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "housekeeper_poller_ticks_total") {
		t.Error("expected poller metrics in /metrics output")
	}

	resp, _ = env.do(t, http.MethodDelete, "/api/v1/pollers/cleanup/tick")
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}

func TestRecovery_PanicBecomesInternalError(t *testing.T) {
	h := Logging(telemetry.DiscardLogger())(Recovery(telemetry.DiscardLogger())(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("boom")
		}),
	))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/pollers", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var errResp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if errResp.Error.Code != ErrCodeInternalError {
		t.Errorf("expected %s, got %s", ErrCodeInternalError, errResp.Error.Code)
	}
}
