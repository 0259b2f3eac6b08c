package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// MessageSanitizerService はコメント本文のサニタイズ機能のインターフェースを定義する。
// Webhookで受信したコメント本文の保存前、およびルール評価の前に使用される。
type MessageSanitizerService interface {
	// Sanitize はコメント本文からHTMLタグを全て除去し、プレーンテキストを返す。
	// コメント本文は表示にも正規表現ルールの評価にも使われるため、
	// マークアップは一切許可しない。
	// HTMLエンティティはデコードして元の文字に戻す（&amp; → & など）。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// messageSanitizer はMessageSanitizerServiceの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフにサニタイズ処理を行う。
type messageSanitizer struct {
	policy *bluemonday.Policy
}

// NewMessageSanitizer はMessageSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyは全てのタグと属性を除去し、テキストノードのみを残す。
func NewMessageSanitizer() *messageSanitizer {
	return &messageSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はコメント本文からHTMLタグを全て除去し、プレーンテキストを返す。
// bluemondayはテキスト中の & < > 等をエンティティにエスケープして返すため、
// デコードして元の文字に戻す。ルール評価はエスケープ前の文字列に対して
// 行わないと、"<free>" のようなキーワードがマッチしなくなる。
func (s *messageSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	cleaned := s.policy.Sanitize(raw)
	return strings.TrimSpace(html.UnescapeString(cleaned))
}
