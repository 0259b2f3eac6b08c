package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// counterValue はレジストリから単一カウンタの現在値を取り出す。
func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() == name {
			if len(mf.GetMetric()) != 1 {
				t.Fatalf("expected 1 metric for %s, got %d", name, len(mf.GetMetric()))
			}
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("%s metric not found", name)
	return 0
}

// TestRecordWebhookReceived_IncrementsCounter は受信カウンタが増加することを検証する。
func TestRecordWebhookReceived_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordWebhookReceived()
	c.RecordWebhookReceived()

	if val := counterValue(t, reg, "clearcomment_webhook_received_total"); val != 2 {
		t.Errorf("webhook_received_total = %v, want 2", val)
	}
}

// TestRecordWebhookRejected_IncrementsCounterWithLabel は拒否カウンタが理由ラベル付きで増加することを検証する。
func TestRecordWebhookRejected_IncrementsCounterWithLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordWebhookRejected("signature")
	c.RecordWebhookRejected("signature")
	c.RecordWebhookRejected("verify_token")

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "clearcomment_webhook_rejected_total" {
			found = true
			if len(mf.GetMetric()) != 2 {
				t.Fatalf("expected 2 label combinations, got %d", len(mf.GetMetric()))
			}
			for _, m := range mf.GetMetric() {
				label := m.GetLabel()[0].GetValue()
				val := m.GetCounter().GetValue()
				switch label {
				case "signature":
					if val != 2 {
						t.Errorf("webhook_rejected_total{reason=signature} = %v, want 2", val)
					}
				case "verify_token":
					if val != 1 {
						t.Errorf("webhook_rejected_total{reason=verify_token} = %v, want 1", val)
					}
				default:
					t.Errorf("unexpected label value: %s", label)
				}
			}
		}
	}
	if !found {
		t.Error("clearcomment_webhook_rejected_total metric not found")
	}
}

// TestRecordEventDeduped_IncrementsCounter は重複スキップカウンタが増加することを検証する。
func TestRecordEventDeduped_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordEventDeduped()
	c.RecordEventDeduped()
	c.RecordEventDeduped()

	if val := counterValue(t, reg, "clearcomment_events_deduped_total"); val != 3 {
		t.Errorf("events_deduped_total = %v, want 3", val)
	}
}

// TestRecordJobProcessed_IncrementsCounterWithLabel はジョブ処理カウンタが結果ラベル付きで増加することを検証する。
func TestRecordJobProcessed_IncrementsCounterWithLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordJobProcessed("completed")
	c.RecordJobProcessed("completed")
	c.RecordJobProcessed("failed")

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "clearcomment_jobs_processed_total" {
			found = true
			for _, m := range mf.GetMetric() {
				label := m.GetLabel()[0].GetValue()
				val := m.GetCounter().GetValue()
				switch label {
				case "completed":
					if val != 2 {
						t.Errorf("jobs_processed_total{outcome=completed} = %v, want 2", val)
					}
				case "failed":
					if val != 1 {
						t.Errorf("jobs_processed_total{outcome=failed} = %v, want 1", val)
					}
				default:
					t.Errorf("unexpected label value: %s", label)
				}
			}
		}
	}
	if !found {
		t.Error("clearcomment_jobs_processed_total metric not found")
	}
}

// TestRecordAction_IncrementsCounterWithLabels はアクションカウンタが種別・成否ラベル付きで増加することを検証する。
func TestRecordAction_IncrementsCounterWithLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAction("HIDE", true)
	c.RecordAction("HIDE", false)
	c.RecordAction("REPLY", true)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "clearcomment_actions_total" {
			found = true
			if len(mf.GetMetric()) != 3 {
				t.Fatalf("expected 3 label combinations, got %d", len(mf.GetMetric()))
			}
		}
	}
	if !found {
		t.Error("clearcomment_actions_total metric not found")
	}
}

// TestRecordActionLatency_ObservesHistogram はアクションレイテンシのヒストグラムに値が記録されることを検証する。
func TestRecordActionLatency_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordActionLatency(100 * time.Millisecond)
	c.RecordActionLatency(2 * time.Second)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "clearcomment_action_latency_seconds" {
			found = true
			h := mf.GetMetric()[0].GetHistogram()
			if h.GetSampleCount() != 2 {
				t.Errorf("sample_count = %d, want 2", h.GetSampleCount())
			}
			// 合計は0.1 + 2.0 = 2.1秒
			if h.GetSampleSum() < 2.0 || h.GetSampleSum() > 2.2 {
				t.Errorf("sample_sum = %v, want ~2.1", h.GetSampleSum())
			}
		}
	}
	if !found {
		t.Error("clearcomment_action_latency_seconds metric not found")
	}
}

// TestMetricsHandler_ReturnsPrometheusFormat は/metricsエンドポイントがPrometheus形式で返すことを検証する。
func TestMetricsHandler_ReturnsPrometheusFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	// いくつかのメトリクスを記録
	c.RecordWebhookReceived()
	c.RecordWebhookRejected("signature")
	c.RecordCommentUpserted()
	c.RecordJobProcessed("completed")
	c.RecordAction("HIDE", true)
	c.RecordActionLatency(500 * time.Millisecond)

	handler := Handler(reg)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, _ := io.ReadAll(resp.Body)
	bodyStr := string(body)

	// Prometheus形式のメトリクスが含まれていることを確認
	expectedMetrics := []string{
		"clearcomment_webhook_received_total",
		"clearcomment_webhook_rejected_total",
		"clearcomment_comments_upserted_total",
		"clearcomment_jobs_processed_total",
		"clearcomment_actions_total",
		"clearcomment_action_latency_seconds",
	}

	for _, metric := range expectedMetrics {
		if !strings.Contains(bodyStr, metric) {
			t.Errorf("response body does not contain %q", metric)
		}
	}
}

// TestCollector_ImplementsMetricsCollectorInterface はCollectorがMetricsCollectorインターフェースを実装することを検証する。
func TestCollector_ImplementsMetricsCollectorInterface(t *testing.T) {
	reg := prometheus.NewRegistry()
	var _ MetricsCollector = NewCollector(reg)
}

// TestMultipleCollectors_IndependentRegistries は異なるレジストリで独立に動作することを検証する。
func TestMultipleCollectors_IndependentRegistries(t *testing.T) {
	reg1 := prometheus.NewRegistry()
	reg2 := prometheus.NewRegistry()
	c1 := NewCollector(reg1)
	c2 := NewCollector(reg2)

	c1.RecordWebhookReceived()
	c2.RecordWebhookReceived()
	c2.RecordWebhookReceived()

	val1 := counterValue(t, reg1, "clearcomment_webhook_received_total")
	val2 := counterValue(t, reg2, "clearcomment_webhook_received_total")

	if val1 != 1 {
		t.Errorf("reg1 webhook_received = %v, want 1", val1)
	}
	if val2 != 2 {
		t.Errorf("reg2 webhook_received = %v, want 2", val2)
	}
}
