// Package config は環境変数からのアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Webhook
	AppSecret   string // 署名検証用の共有シークレット
	VerifyToken string // 購読確認（hub.verify_token）の照合値

	// Scheduler
	CronSecret string // キュートリガーエンドポイントのBearerシークレット

	// Credential
	EncryptionKey string // ページアクセストークン復号用の鍵素材

	// Graph API
	GraphBaseURL string
	GraphTimeout time.Duration

	// Queue
	QueueBatchSize   int
	QueueMaxAttempts int
	WorkerInterval   time.Duration

	// Classifier（空文字の場合はAI分類を無効化する）
	OpenAIAPIKey string

	// Rate Limit
	WebhookRatePerMin int
	WebhookBurst      int

	// Server
	ServerPort string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.AppSecret = os.Getenv("FB_APP_SECRET")
	if cfg.AppSecret == "" {
		missing = append(missing, "FB_APP_SECRET")
	}

	cfg.VerifyToken = os.Getenv("FB_VERIFY_TOKEN")
	if cfg.VerifyToken == "" {
		missing = append(missing, "FB_VERIFY_TOKEN")
	}

	cfg.CronSecret = os.Getenv("CRON_SECRET")
	if cfg.CronSecret == "" {
		missing = append(missing, "CRON_SECRET")
	}

	cfg.EncryptionKey = os.Getenv("ENCRYPTION_KEY")
	if cfg.EncryptionKey == "" {
		missing = append(missing, "ENCRYPTION_KEY")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.GraphBaseURL = getEnvString("GRAPH_API_BASE_URL", "https://graph.facebook.com/v19.0")
	cfg.GraphTimeout = getEnvDuration("GRAPH_TIMEOUT", 15*time.Second)
	cfg.QueueBatchSize = getEnvInt("QUEUE_BATCH_SIZE", 10)
	cfg.QueueMaxAttempts = getEnvInt("QUEUE_MAX_ATTEMPTS", 3)
	cfg.WorkerInterval = getEnvDuration("WORKER_INTERVAL", time.Minute)
	cfg.OpenAIAPIKey = getEnvString("OPENAI_API_KEY", "")
	cfg.WebhookRatePerMin = getEnvInt("WEBHOOK_RATE_PER_MIN", 600)
	cfg.WebhookBurst = getEnvInt("WEBHOOK_BURST", 100)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
