package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/abdulkhaliq-cyber/clearcomment/internal/metrics"
	"github.com/abdulkhaliq-cyber/clearcomment/internal/middleware"
	"github.com/abdulkhaliq-cyber/clearcomment/internal/queue"
)

// mockHealthChecker は死活確認の結果を固定で返すモック。
type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) PingContext(ctx context.Context) error {
	return m.err
}

// newTestRouter は全依存をモックで埋めたルーターを生成する。
func newTestRouter(t *testing.T, deps *RouterDeps) http.Handler {
	t.Helper()

	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if deps.RateLimiter == nil {
		rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			WebhookRate:     rate.Limit(100),
			WebhookBurst:    100,
			CleanupInterval: time.Hour,
		})
		t.Cleanup(rl.Stop)
		deps.RateLimiter = rl
	}
	if deps.CronSecret == "" {
		deps.CronSecret = "cron-secret"
	}
	if deps.SignatureVerifier == nil {
		deps.SignatureVerifier = &mockSignatureVerifier{valid: true}
	}
	if deps.Dispatcher == nil {
		deps.Dispatcher = &mockDispatcher{}
	}
	if deps.Collector == nil {
		deps.Collector = newMockCollector()
	}
	if deps.QueueProcessor == nil {
		deps.QueueProcessor = &mockBatchProcessor{}
	}
	if deps.HealthChecker == nil {
		deps.HealthChecker = &mockHealthChecker{}
	}
	if deps.WebhookConfig.VerifyToken == "" {
		deps.WebhookConfig = WebhookHandlerConfig{VerifyToken: "verify-me"}
	}

	return NewRouter(deps)
}

func TestRouter_WebhookVerification(t *testing.T) {
	router := newTestRouter(t, &RouterDeps{})

	req := httptest.NewRequest(http.MethodGet,
		"/webhooks/facebook?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=abc", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("ステータスコードが一致しない: got=%d want=200", rec.Code)
	}
	if rec.Body.String() != "abc" {
		t.Errorf("challengeが返されていない: got=%q", rec.Body.String())
	}
}

func TestRouter_WebhookEventFlow(t *testing.T) {
	dispatcher := &mockDispatcher{}
	router := newTestRouter(t, &RouterDeps{Dispatcher: dispatcher})

	req := httptest.NewRequest(http.MethodPost, "/webhooks/facebook", strings.NewReader(validEventBody))
	req.Header.Set("X-Hub-Signature-256", "sha256=deadbeef")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("ステータスコードが一致しない: got=%d want=200", rec.Code)
	}
	if len(dispatcher.payloads) != 1 {
		t.Errorf("イベントがディスパッチされていない: got=%d", len(dispatcher.payloads))
	}
}

func TestRouter_CronRequiresSecret(t *testing.T) {
	processor := &mockBatchProcessor{summary: queue.Summary{Claimed: 1}}
	router := newTestRouter(t, &RouterDeps{QueueProcessor: processor})

	// 認証なしは拒否される
	req := httptest.NewRequest(http.MethodPost, "/api/cron/process-queue", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("未認証が拒否されていない: got=%d", rec.Code)
	}
	if processor.calls != 0 {
		t.Error("未認証なのにバッチ処理が実行された")
	}

	// 正しいシークレットは通る
	req = httptest.NewRequest(http.MethodPost, "/api/cron/process-queue", nil)
	req.Header.Set("Authorization", "Bearer cron-secret")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("認証済みリクエストが拒否された: got=%d", rec.Code)
	}
	if processor.calls != 1 {
		t.Errorf("バッチ処理が実行されていない: calls=%d", processor.calls)
	}
}

func TestRouter_Healthz(t *testing.T) {
	router := newTestRouter(t, &RouterDeps{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("ステータスコードが一致しない: got=%d want=200", rec.Code)
	}
}

func TestRouter_HealthzReportsUnavailable(t *testing.T) {
	router := newTestRouter(t, &RouterDeps{
		HealthChecker: &mockHealthChecker{err: errors.New("connection refused")},
	})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("ステータスコードが一致しない: got=%d want=503", rec.Code)
	}
}

func TestRouter_MetricsRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	collector.RecordWebhookReceived()

	router := newTestRouter(t, &RouterDeps{
		Collector:      collector,
		MetricsHandler: metrics.Handler(reg),
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("ステータスコードが一致しない: got=%d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "clearcomment_webhook_received_total") {
		t.Error("メトリクスが出力されていない")
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	router := newTestRouter(t, &RouterDeps{})

	req := httptest.NewRequest(http.MethodGet, "/api/unknown", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("ステータスコードが一致しない: got=%d want=404", rec.Code)
	}
}

func TestRouter_SecurityHeaders(t *testing.T) {
	router := newTestRouter(t, &RouterDeps{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("セキュリティヘッダーが設定されていない")
	}
}
