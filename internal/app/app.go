package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/abdulkhaliq-cyber/clearcomment/internal/classifier"
	"github.com/abdulkhaliq-cyber/clearcomment/internal/config"
	"github.com/abdulkhaliq-cyber/clearcomment/internal/credential"
	"github.com/abdulkhaliq-cyber/clearcomment/internal/database"
	"github.com/abdulkhaliq-cyber/clearcomment/internal/facebook"
	"github.com/abdulkhaliq-cyber/clearcomment/internal/handler"
	"github.com/abdulkhaliq-cyber/clearcomment/internal/logger"
	"github.com/abdulkhaliq-cyber/clearcomment/internal/metrics"
	"github.com/abdulkhaliq-cyber/clearcomment/internal/middleware"
	"github.com/abdulkhaliq-cyber/clearcomment/internal/moderation"
	"github.com/abdulkhaliq-cyber/clearcomment/internal/queue"
	"github.com/abdulkhaliq-cyber/clearcomment/internal/repository"
	"github.com/abdulkhaliq-cyber/clearcomment/internal/rules"
	"github.com/abdulkhaliq-cyber/clearcomment/internal/security"
	"github.com/abdulkhaliq-cyber/clearcomment/internal/webhook"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// moderationStack はモデレーションパイプラインの依存一式。
// serveとworkerの両モードで同じワイヤリングを共有する。
type moderationStack struct {
	pageRepo    *repository.PostgresPageRepo
	commentRepo *repository.PostgresCommentRepo
	dedupRepo   *repository.PostgresDedupRepo
	queueRepo   *repository.PostgresQueueRepo

	collector *metrics.Collector
	registry  *prometheus.Registry

	moderator moderation.Service
	worker    *queue.Worker
}

// buildModerationStack はDB接続からモデレーションパイプラインまでをワイヤリングする。
func buildModerationStack(cfg *config.Config, db *sql.DB) (*moderationStack, error) {
	log := slog.Default()

	// リポジトリ
	pageRepo := repository.NewPostgresPageRepo(db)
	commentRepo := repository.NewPostgresCommentRepo(db)
	dedupRepo := repository.NewPostgresDedupRepo(db)
	queueRepo := repository.NewPostgresQueueRepo(db)
	ruleRepo := repository.NewPostgresRuleRepo(db)
	logRepo := repository.NewPostgresLogRepo(db)

	// メトリクス
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// Graph APIクライアント（SSRF防止付きHTTPクライアント経由）
	ssrfGuard := security.NewSSRFGuard()
	if err := ssrfGuard.ValidateURL(cfg.GraphBaseURL); err != nil {
		return nil, fmt.Errorf("unsafe Graph API base URL: %w", err)
	}
	fbClient := facebook.NewClient(ssrfGuard.NewSafeClient(cfg.GraphTimeout), log, cfg.GraphBaseURL)

	// 認証情報の復号
	codec := credential.NewAESCodec(cfg.EncryptionKey)

	// AI分類（APIキーが設定されている場合のみ有効化）
	var cls classifier.Classifier
	if cfg.OpenAIAPIKey != "" {
		cls = classifier.NewOpenAIClassifier(cfg.OpenAIAPIKey, log)
		slog.Info("AI classifier fallback enabled")
	}

	executor := moderation.NewExecutor(fbClient, codec, commentRepo, logRepo, collector, log)
	moderator := moderation.NewService(pageRepo, ruleRepo, rules.NewEngine(), executor, cls, log)
	worker := queue.NewWorker(queueRepo, moderator, collector, log, cfg.QueueBatchSize, cfg.QueueMaxAttempts)

	return &moderationStack{
		pageRepo:    pageRepo,
		commentRepo: commentRepo,
		dedupRepo:   dedupRepo,
		queueRepo:   queueRepo,
		collector:   collector,
		registry:    registry,
		moderator:   moderator,
		worker:      worker,
	}, nil
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	log := slog.Default()

	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. モデレーションパイプラインの構築
	stack, err := buildModerationStack(cfg, db)
	if err != nil {
		return err
	}

	// 3. Webhook受信パイプラインの構築
	sanitizer := security.NewMessageSanitizer()
	normalizer := webhook.NewNormalizer(
		stack.pageRepo, stack.commentRepo, stack.dedupRepo, stack.queueRepo,
		sanitizer, stack.collector, log,
	)
	dispatcher := webhook.NewDispatcher(normalizer, log, 30*time.Second, func(err error) {
		// 受理済みイベントのバックグラウンド処理失敗はデッドレターとして計上する
		stack.collector.RecordWebhookRejected("processing_failed")
	})

	// 4. ルーターの構築
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.WebhookRate = rate.Limit(float64(cfg.WebhookRatePerMin) / 60.0)
	rateLimiterCfg.WebhookBurst = cfg.WebhookBurst
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:      log,
		RateLimiter: rateLimiter,
		CronSecret:  cfg.CronSecret,

		WebhookConfig:     handler.WebhookHandlerConfig{VerifyToken: cfg.VerifyToken},
		SignatureVerifier: security.NewSignatureVerifier(cfg.AppSecret),
		Dispatcher:        dispatcher,
		Collector:         stack.collector,

		QueueProcessor: stack.worker,

		HealthChecker:  db,
		MetricsHandler: metrics.Handler(stack.registry),
	})

	// 5. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	// 受付済みWebhookイベントの処理完了を待ってから終了する
	dispatcher.Wait()
	rateLimiter.Stop()

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、キュー処理スケジューラーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. モデレーションパイプラインの構築
	stack, err := buildModerationStack(cfg, db)
	if err != nil {
		return err
	}

	scheduler := queue.NewScheduler(stack.worker, slog.Default())

	// シグナル受信でスケジューラーを停止する
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	// キュー処理スケジューラーをメインgoroutineで実行（ブロッキング）
	scheduler.Start(ctx, cfg.WorkerInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /healthz エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/healthz", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
