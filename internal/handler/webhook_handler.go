package handler

import (
	"io"
	"net/http"

	"github.com/abdulkhaliq-cyber/clearcomment/internal/metrics"
	"github.com/abdulkhaliq-cyber/clearcomment/internal/model"
	"github.com/abdulkhaliq-cyber/clearcomment/internal/security"
	"github.com/abdulkhaliq-cyber/clearcomment/internal/webhook"
)

// maxWebhookBodySize はWebhookリクエストボディの最大サイズ（1MB）。
// プロバイダーのイベントバッチはこのサイズに収まる。
const maxWebhookBodySize = 1 << 20

// signatureHeader はペイロード署名が入るHTTPヘッダー名。
const signatureHeader = "X-Hub-Signature-256"

// EventDispatcher はWebhookイベントをバックグラウンド処理に引き渡すインターフェース。
type EventDispatcher interface {
	// Dispatch はペイロードの処理を非同期に開始する。
	Dispatch(payload *webhook.Payload)
}

// WebhookHandlerConfig はWebhookハンドラーの設定。
type WebhookHandlerConfig struct {
	// VerifyToken は購読検証ハンドシェイクで照合するトークン。
	VerifyToken string
}

// WebhookHandler はプロバイダーからのWebhook受信を処理するHTTPハンドラー。
// 受信処理は署名検証とペイロード解析のみ行い、コメント処理は
// ディスパッチャーに委譲して即座に応答を返す。
type WebhookHandler struct {
	config     WebhookHandlerConfig
	verifier   security.SignatureVerifier
	dispatcher EventDispatcher
	collector  metrics.MetricsCollector
}

// NewWebhookHandler はWebhookHandlerを生成する。
func NewWebhookHandler(
	config WebhookHandlerConfig,
	verifier security.SignatureVerifier,
	dispatcher EventDispatcher,
	collector metrics.MetricsCollector,
) *WebhookHandler {
	return &WebhookHandler{
		config:     config,
		verifier:   verifier,
		dispatcher: dispatcher,
		collector:  collector,
	}
}

// VerifySubscription は購読検証ハンドシェイクを処理する。
// GET /webhooks/facebook
//
// hub.mode=subscribe かつ hub.verify_token が設定値と一致する場合のみ、
// hub.challenge の値をそのまま返す。
func (h *WebhookHandler) VerifySubscription(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	mode := query.Get("hub.mode")
	token := query.Get("hub.verify_token")
	challenge := query.Get("hub.challenge")

	if mode != "subscribe" || token == "" || token != h.config.VerifyToken {
		h.collector.RecordWebhookRejected("verify_token")
		writeAPIErrorResponse(w, http.StatusForbidden, &model.APIError{
			Code:     model.ErrCodeVerifyTokenFailed,
			Message:  "購読検証トークンが一致しません。",
			Category: "auth",
			Action:   "プロバイダー側の設定とverify tokenを確認してください。",
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(challenge))
}

// ReceiveEvent はWebhookイベントの受信を処理する。
// POST /webhooks/facebook
//
// 署名検証に成功したイベントはバックグラウンド処理に引き渡し、
// プロバイダーの再送を避けるため即座に200を返す。
func (h *WebhookHandler) ReceiveEvent(w http.ResponseWriter, r *http.Request) {
	rawBody, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodySize))
	if err != nil {
		h.collector.RecordWebhookRejected("body_read")
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidPayloadError("リクエストボディの読み込みに失敗しました"))
		return
	}

	if !h.verifier.Verify(rawBody, r.Header.Get(signatureHeader)) {
		h.collector.RecordWebhookRejected("signature")
		writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
			Code:     model.ErrCodeSignatureInvalid,
			Message:  "ペイロード署名の検証に失敗しました。",
			Category: "auth",
			Action:   "アプリシークレットの設定を確認してください。",
		})
		return
	}

	payload, err := webhook.ParsePayload(rawBody)
	if err != nil {
		h.collector.RecordWebhookRejected("payload")
		handleServiceError(w, err)
		return
	}

	h.collector.RecordWebhookReceived()
	h.dispatcher.Dispatch(payload)

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("EVENT_RECEIVED"))
}
