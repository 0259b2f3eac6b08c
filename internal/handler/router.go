package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/abdulkhaliq-cyber/clearcomment/internal/metrics"
	"github.com/abdulkhaliq-cyber/clearcomment/internal/middleware"
	"github.com/abdulkhaliq-cyber/clearcomment/internal/security"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger      *slog.Logger
	RateLimiter *middleware.RateLimiter
	CronSecret  string

	// Webhook受信
	WebhookConfig     WebhookHandlerConfig
	SignatureVerifier security.SignatureVerifier
	Dispatcher        EventDispatcher
	Collector         metrics.MetricsCollector

	// キュー処理
	QueueProcessor BatchProcessor

	// 運用
	HealthChecker  HealthChecker
	MetricsHandler http.Handler
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → Logging
//
// Webhook受信ルートには送信元ごとのレート制限を、
// キュー処理ルートには共有シークレット認証を追加する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))

	webhookHandler := NewWebhookHandler(deps.WebhookConfig, deps.SignatureVerifier, deps.Dispatcher, deps.Collector)
	queueHandler := NewQueueHandler(deps.QueueProcessor)
	healthHandler := NewHealthHandler(deps.HealthChecker)

	// Webhook受信（署名検証で保護、送信元ごとのレート制限付き）
	r.Route("/webhooks/facebook", func(r chi.Router) {
		r.Use(deps.RateLimiter.WebhookMiddleware())

		r.Get("/", webhookHandler.VerifySubscription)
		r.Post("/", webhookHandler.ReceiveEvent)
	})

	// スケジューラー向けキュー処理（共有シークレットで保護）
	r.Route("/api/cron", func(r chi.Router) {
		r.Use(middleware.NewSecretAuthMiddleware(deps.CronSecret))

		r.Post("/process-queue", queueHandler.ProcessQueue)
	})

	// 運用エンドポイント
	r.Get("/healthz", healthHandler.Check)
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	return r
}
