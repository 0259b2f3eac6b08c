package model

import "time"

// ActionType はコメントに対する外部アクションの種別を表す。
type ActionType string

const (
	// ActionHide はコメントを非表示にする。
	ActionHide ActionType = "HIDE"
	// ActionUnhide はコメントの非表示を解除する。
	ActionUnhide ActionType = "UNHIDE"
	// ActionDelete はコメントを削除する。
	ActionDelete ActionType = "DELETE"
	// ActionReply はコメントに返信する。
	ActionReply ActionType = "REPLY"
	// ActionLike はコメントにリアクションを付ける。
	ActionLike ActionType = "LIKE"
	// ActionUnlike はコメントのリアクションを外す。
	ActionUnlike ActionType = "UNLIKE"
	// ActionTest は疎通確認用のダミーアクション。
	ActionTest ActionType = "TEST"
)

// ValidAction はアクション種別が定義済みかを返す。
func ValidAction(a ActionType) bool {
	switch a {
	case ActionHide, ActionUnhide, ActionDelete, ActionReply, ActionLike, ActionUnlike, ActionTest:
		return true
	}
	return false
}

// ModerationLog は実行（または試行）されたアクションの監査エントリを表す。
// 成功・失敗を問わずアクション1回につき必ず1件作成される追記専用レコード。
// RuleIDがnilの場合は自動モデレーション以外（手動操作・外部トリガー）を意味する。
type ModerationLog struct {
	ID          string
	PageID      string
	Action      ActionType
	CommentID   string
	CommentText string // 対象コメント本文のスナップショット（切り詰め済み）
	RuleID      *string
	Success     bool
	APIResponse string // リモートレスポンスのスナップショット（切り詰め済み）
	CreatedAt   time.Time
}
