// Package model はドメインモデルを定義する。
package model

import "time"

// Page は監視対象のFacebookページを表す。
// AccessTokenEncryptedは暗号化済みのページアクセストークンで、
// コアロジックからは不透明な文字列として扱う（復号はcredentialパッケージの責務）。
type Page struct {
	ID                   string // 内部ID（UUID）
	ExternalPageID       string // Facebook側のページID
	Name                 string
	AccessTokenEncrypted string
	ModerationEnabled    bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Comment は外部プラットフォーム上のコメントのローカルミラーを表す。
// 主キーは外部コメントID。Webhook受信時に作成・更新され、
// HIDE/UNHIDE/DELETEアクションの成功時にも更新される。
type Comment struct {
	ID                string // 外部コメントID（主キー）
	PageID            string // 所属ページの内部ID
	PostID            string // 外部投稿ID
	Message           string
	AuthorName        string
	AuthorID          string
	IsHidden          bool
	ExternalCreatedAt time.Time // プラットフォーム側の作成日時
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
