// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// Webhookハンドラー、ワーカー、アクション実行層から利用する。
type MetricsCollector interface {
	RecordWebhookReceived()
	RecordWebhookRejected(reason string)
	RecordEventDeduped()
	RecordCommentUpserted()
	RecordJobProcessed(outcome string)
	RecordJobExhausted()
	RecordAction(action string, success bool)
	RecordActionLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	webhookReceived  prometheus.Counter
	webhookRejected  *prometheus.CounterVec
	eventsDeduped    prometheus.Counter
	commentsUpserted prometheus.Counter
	jobsProcessed    *prometheus.CounterVec
	jobsExhausted    prometheus.Counter
	actions          *prometheus.CounterVec
	actionLatency    prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		webhookReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clearcomment_webhook_received_total",
			Help: "受信したWebhookリクエストの合計数",
		}),
		webhookRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clearcomment_webhook_rejected_total",
			Help: "拒否したWebhookリクエストの理由別合計数",
		}, []string{"reason"}),
		eventsDeduped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clearcomment_events_deduped_total",
			Help: "重複としてスキップしたイベントの合計数",
		}),
		commentsUpserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clearcomment_comments_upserted_total",
			Help: "アップサートされたコメントの合計数",
		}),
		jobsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clearcomment_jobs_processed_total",
			Help: "処理したキュージョブの結果別合計数",
		}, []string{"outcome"}),
		jobsExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clearcomment_jobs_exhausted_total",
			Help: "試行上限に達して打ち切られたジョブの合計数",
		}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clearcomment_actions_total",
			Help: "実行したモデレーションアクションの種別・成否別合計数",
		}, []string{"action", "success"}),
		actionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "clearcomment_action_latency_seconds",
			Help:    "Graph APIアクションのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.webhookReceived,
		c.webhookRejected,
		c.eventsDeduped,
		c.commentsUpserted,
		c.jobsProcessed,
		c.jobsExhausted,
		c.actions,
		c.actionLatency,
	)

	return c
}

// RecordWebhookReceived はWebhookリクエストの受信を記録する。
func (c *Collector) RecordWebhookReceived() {
	c.webhookReceived.Inc()
}

// RecordWebhookRejected はWebhookリクエストの拒否を理由付きで記録する。
func (c *Collector) RecordWebhookRejected(reason string) {
	c.webhookRejected.WithLabelValues(reason).Inc()
}

// RecordEventDeduped は重複イベントのスキップを記録する。
func (c *Collector) RecordEventDeduped() {
	c.eventsDeduped.Inc()
}

// RecordCommentUpserted はコメントのアップサートを記録する。
func (c *Collector) RecordCommentUpserted() {
	c.commentsUpserted.Inc()
}

// RecordJobProcessed はキュージョブ1件の処理結果を記録する。
func (c *Collector) RecordJobProcessed(outcome string) {
	c.jobsProcessed.WithLabelValues(outcome).Inc()
}

// RecordJobExhausted は試行上限に達したジョブを記録する。
func (c *Collector) RecordJobExhausted() {
	c.jobsExhausted.Inc()
}

// RecordAction はモデレーションアクションの実行を記録する。
func (c *Collector) RecordAction(action string, success bool) {
	c.actions.WithLabelValues(action, strconv.FormatBool(success)).Inc()
}

// RecordActionLatency はGraph APIアクションのレイテンシを記録する。
func (c *Collector) RecordActionLatency(duration time.Duration) {
	c.actionLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
