// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/abdulkhaliq-cyber/clearcomment/internal/model"
)

// PageRepository は監視対象ページの永続化インターフェース。
// ページの作成・削除はダッシュボード側の責務であり、コアは読み取りのみを行う。
type PageRepository interface {
	// FindByID は内部IDでページを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Page, error)

	// FindByExternalID は外部ページIDでページを検索する。見つからない場合はnilを返す。
	// Webhook受信時のページ許可リスト判定に使用する。
	FindByExternalID(ctx context.Context, externalPageID string) (*model.Page, error)
}

// CommentRepository はコメントミラーの永続化インターフェース。
type CommentRepository interface {
	// FindByID は外部コメントIDでコメントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Comment, error)

	// Upsert はコメントを外部IDで冪等にUPSERTする。
	// 既存行がある場合はmessage、is_hidden、updated_atのみを更新する。
	Upsert(ctx context.Context, comment *model.Comment) error

	// SetHidden はコメントの非表示フラグを更新する。
	// HIDE/UNHIDEアクションの成功時に呼び出す。
	SetHidden(ctx context.Context, id string, hidden bool) error

	// Delete はコメントを削除する。DELETEアクションの成功時に呼び出す。
	Delete(ctx context.Context, id string) error
}

// RuleRepository はモデレーションルールの永続化インターフェース。
// ルールのCRUDはダッシュボード側の責務であり、コアは有効ルールの読み取りと
// 発火時刻の更新のみを行う。
type RuleRepository interface {
	// ListEnabledByPage はページの有効ルールを作成日時の降順で返す。
	// この順序がルール評価のタイブレーク順序となる。
	ListEnabledByPage(ctx context.Context, pageID string) ([]*model.ModerationRule, error)

	// Create はルールを作成する。種別必須フィールドの検証は呼び出し元で行うこと。
	Create(ctx context.Context, rule *model.ModerationRule) error

	// TouchLastTriggered はルールの最終発火時刻を更新する。
	TouchLastTriggered(ctx context.Context, ruleID string, at time.Time) error
}

// QueueRepository はモデレーションキューの永続化インターフェース。
type QueueRepository interface {
	// Enqueue はPENDING状態のジョブを作成する。
	Enqueue(ctx context.Context, job *model.QueueJob) error

	// SelectEligible は処理対象ジョブ（status ∈ {PENDING, FAILED} かつ
	// attempts < maxAttempts）のIDを作成日時の昇順で最大limit件返す。
	SelectEligible(ctx context.Context, limit, maxAttempts int) ([]string, error)

	// Claim はジョブをPROCESSINGに遷移させ、attemptsをインクリメントする。
	// 状態遷移とインクリメントは単一の条件付きUPDATEで行い、
	// 他のワーカー起動と競合した場合はnil（獲得失敗）を返す。
	Claim(ctx context.Context, id string, maxAttempts int) (*model.QueueJob, error)

	// MarkCompleted はジョブをCOMPLETEDに遷移させる。
	MarkCompleted(ctx context.Context, id string) error

	// MarkFailed はジョブをFAILEDに遷移させ、エラーメッセージを記録する。
	// メッセージは保存前に切り詰められる。
	MarkFailed(ctx context.Context, id string, jobErr string) error

	// FindByID は指定IDのジョブを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.QueueJob, error)
}

// DedupRepository は処理済みイベント台帳の永続化インターフェース。
type DedupRepository interface {
	// Create は台帳レコードを作成する。
	// 同一event_idが既に存在する場合はmodel.ErrDuplicateEventを返す。
	// 存在チェックとINSERTを分離せず、一意制約違反そのものを重複の判定に使うこと。
	Create(ctx context.Context, record *model.DedupRecord) error
}

// LogRepository は監査ログの永続化インターフェース。追記のみ。
type LogRepository interface {
	// Create は監査ログエントリを作成する。
	Create(ctx context.Context, entry *model.ModerationLog) error

	// ListByPage はページの監査ログを新しい順に最大limit件返す。
	ListByPage(ctx context.Context, pageID string, limit int) ([]*model.ModerationLog, error)
}
