package model

import (
	"regexp"
	"time"
)

// RuleType はモデレーションルールの種別を表す。
type RuleType string

const (
	// RuleTypeBlockKeyword はキーワード一致でコメントを非表示にするルール。
	RuleTypeBlockKeyword RuleType = "BLOCK_KEYWORD"
	// RuleTypeAutoReply はキーワード一致で自動返信するルール。
	RuleTypeAutoReply RuleType = "AUTO_REPLY"
	// RuleTypeBlockLink はリンクを含むコメントを非表示にするルール。
	RuleTypeBlockLink RuleType = "BLOCK_LINK"
	// RuleTypeBlockImage は画像URLを含むコメントを非表示にするルール。
	RuleTypeBlockImage RuleType = "BLOCK_IMAGE"
	// RuleTypeRegexMatch は正規表現一致でコメントを非表示にするルール。
	RuleTypeRegexMatch RuleType = "REGEX_MATCH"
)

// ModerationRule はページ単位のモデレーションポリシーを表す。
// 種別ごとに必須フィールドが異なる（ValidateRuleを参照）。
type ModerationRule struct {
	ID              string
	PageID          string
	Type            RuleType
	Keyword         string // BLOCK_KEYWORD / AUTO_REPLY のキーワード、REGEX_MATCH のパターン
	ReplyText       string // AUTO_REPLY の返信文
	ExactMatch      bool   // BLOCK_KEYWORD のみ: 部分一致ではなく完全一致で判定する
	Enabled         bool
	LastTriggeredAt *time.Time
	CreatedAt       time.Time
}

// ValidateRule はルールの種別必須フィールドを検証する。
// 不正な場合はバリデーションエラー（*APIError）を返す。
// 種別必須フィールドの欠落は作成時のバリデーションエラーであり、
// 実行時の障害として扱ってはならない。
func ValidateRule(rule *ModerationRule) *APIError {
	switch rule.Type {
	case RuleTypeBlockKeyword:
		if rule.Keyword == "" {
			return NewRuleValidationError("BLOCK_KEYWORD ルールには keyword が必要です")
		}
	case RuleTypeAutoReply:
		if rule.Keyword == "" || rule.ReplyText == "" {
			return NewRuleValidationError("AUTO_REPLY ルールには keyword と replyText が必要です")
		}
	case RuleTypeRegexMatch:
		if rule.Keyword == "" {
			return NewRuleValidationError("REGEX_MATCH ルールには pattern が必要です")
		}
		if _, err := regexp.Compile(rule.Keyword); err != nil {
			return NewRuleValidationError("REGEX_MATCH のパターンが正規表現として不正です: " + err.Error())
		}
	case RuleTypeBlockLink, RuleTypeBlockImage:
		// 追加フィールド不要
	default:
		return NewRuleValidationError("未知のルール種別です: " + string(rule.Type))
	}
	return nil
}
