// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// 原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, moderation, system
	Action   string // 運用者向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeSignatureInvalid  = "SIGNATURE_INVALID"
	ErrCodeVerifyTokenFailed = "VERIFY_TOKEN_FAILED"
	ErrCodeSchedulerAuth     = "SCHEDULER_AUTH_FAILED"
	ErrCodeRuleValidation    = "RULE_VALIDATION"
	ErrCodeInvalidPayload    = "INVALID_PAYLOAD"
	ErrCodeInvalidAction     = "INVALID_ACTION"
	ErrCodeTokenExpired      = "TOKEN_EXPIRED"
	ErrCodeRemoteAction      = "REMOTE_ACTION_FAILED"
	ErrCodePageNotFound      = "PAGE_NOT_FOUND"
)

// パイプライン内の分岐に使用するセンチネルエラー。
var (
	// ErrDuplicateEvent は同一イベントが処理済みであることを示す。
	// 呼び出し元にとってエラーではなく、スキップのシグナルとして扱う。
	ErrDuplicateEvent = errors.New("イベントは処理済みです")

	// ErrUnknownPage はイベントが未登録のページを参照していることを示す。
	// 受信時は黙ってスキップし、キュー処理中はジョブの致命的エラーとして扱う。
	ErrUnknownPage = errors.New("未登録のページです")

	// ErrTokenExpired はページアクセストークンの失効を示す。
	// 同じトークンでの再試行は成功しないため、リトライ対象の障害と区別する。
	ErrTokenExpired = errors.New("ページアクセストークンが失効しています")
)

// NewRuleValidationError はルール定義のバリデーションエラーを生成する。
func NewRuleValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeRuleValidation,
		Message:  reason,
		Category: "validation",
		Action:   "ルールの種別必須フィールドを設定してください。",
	}
}

// NewInvalidPayloadError は不正なイベントペイロードのエラーを生成する。
func NewInvalidPayloadError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPayload,
		Message:  fmt.Sprintf("イベントペイロードが不正です: %s", reason),
		Category: "validation",
		Action:   "プロバイダーのペイロード形式を確認してください。",
	}
}

// NewInvalidActionError は未定義のアクション種別のエラーを生成する。
func NewInvalidActionError(action string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidAction,
		Message:  fmt.Sprintf("未定義のアクションです: %s", action),
		Category: "validation",
		Action:   "hide, unhide, delete, reply, like, unlike のいずれかを指定してください。",
	}
}

// NewTokenExpiredError はトークン失効エラーを生成する。
// ダッシュボード側で再接続を促すために他の失敗と区別して返す。
func NewTokenExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenExpired,
		Message:  "ページアクセストークンが失効しています。",
		Category: "auth",
		Action:   "ページを再接続してトークンを更新してください。",
	}
}

// NewRemoteActionError はリモートアクション拒否のエラーを生成する。
func NewRemoteActionError(action string, statusCode int) *APIError {
	return &APIError{
		Code:     ErrCodeRemoteAction,
		Message:  fmt.Sprintf("リモートアクション %s がステータス %d で拒否されました。", action, statusCode),
		Category: "moderation",
		Action:   "監査ログの応答スナップショットを確認してください。",
	}
}

// NewPageNotFoundError はページ未登録エラーを生成する。
func NewPageNotFoundError(pageID string) *APIError {
	return &APIError{
		Code:     ErrCodePageNotFound,
		Message:  fmt.Sprintf("指定されたページが見つかりません: %s", pageID),
		Category: "moderation",
		Action:   "ページIDを確認してください。",
	}
}
