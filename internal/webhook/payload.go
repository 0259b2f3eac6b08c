// Package webhook はFacebookからの変更通知の解析・検証・正規化を提供する。
//
// 受信パスの流れ: 署名検証（handler層）→ ペイロード解析 → ページ許可リスト判定 →
// 重複排除台帳への記録 → コメントのUPSERT → モデレーションキューへの投入。
// 処理は応答返却後にバックグラウンドで行われる（Dispatcher参照）。
package webhook

import (
	"encoding/json"

	"github.com/abdulkhaliq-cyber/clearcomment/internal/model"
)

// Payload はWebhook通知のトップレベル構造。
type Payload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry はページ1件分の変更通知。IDは外部ページID。
type Entry struct {
	ID      string   `json:"id"`
	Time    int64    `json:"time"`
	Changes []Change `json:"changes"`
}

// Change はフィード上の変更1件。
type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

// ChangeValue はコメント変更の詳細。
// CreatedTimeはUnix秒。IsHiddenはページ側で既に非表示のコメントを示す。
type ChangeValue struct {
	Item        string `json:"item"`
	Verb        string `json:"verb"`
	CommentID   string `json:"comment_id"`
	PostID      string `json:"post_id"`
	Message     string `json:"message"`
	SenderName  string `json:"sender_name"`
	SenderID    string `json:"sender_id"`
	CreatedTime int64  `json:"created_time"`
	IsHidden    bool   `json:"is_hidden"`
}

// ParsePayload は生のリクエストボディをPayloadに解析する。
// 署名検証済みのボディに対してのみ呼び出すこと。
func ParsePayload(rawBody []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(rawBody, &p); err != nil {
		return nil, model.NewInvalidPayloadError("JSONの解析に失敗しました")
	}
	return &p, nil
}

// isCommentChange は変更がフィード上のコメントイベントかを判定する。
func isCommentChange(change Change) bool {
	return change.Field == "feed" && change.Value.Item == "comment"
}
