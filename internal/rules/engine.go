// Package rules はページごとのモデレーションルールの評価エンジンを提供する。
//
// 評価は2つの優先度ティアに分かれる。ブロック系ルール
// (BLOCK_KEYWORD, BLOCK_LINK, BLOCK_IMAGE, REGEX_MATCH) が先に評価され、
// いずれかが成立した場合はAUTO_REPLYルールには到達しない。
// 各ティア内の順序は渡されたルールスライスの順序（作成日時の降順）に従う。
package rules

import (
	"regexp"
	"strings"

	"github.com/abdulkhaliq-cyber/clearcomment/internal/model"
)

// linkPattern はコメント本文中のURLを検出する。
var linkPattern = regexp.MustCompile(`(?i)\bhttps?://\S+|\bwww\.\S+`)

// imagePattern はコメント本文中の画像URLを検出する。
// 添付画像はWebhookペイロードに含まれないため、本文中のURL拡張子で判定する。
var imagePattern = regexp.MustCompile(`(?i)\bhttps?://\S+\.(?:png|jpe?g|gif|webp|bmp)(?:[?#]\S*)?\b`)

// Candidate はマッチしたルールと実行すべきアクションの組。
type Candidate struct {
	Rule      model.ModerationRule
	Action    model.ActionType
	ReplyText string
}

// Engine はルール評価機能のインターフェースを定義する。
type Engine interface {
	// Candidates は有効ルールをコメント本文に対して評価し、
	// 実行候補を優先度順に返す。ブロック系ティアが先、AUTO_REPLYティアが後。
	// 各ティア内ではrulesの順序が保たれる。
	// マッチするルールがない場合は空スライスを返す（エラーではない）。
	Candidates(ruleList []model.ModerationRule, message string) []Candidate
}

// engine はEngineの実装。状態を持たない。
type engine struct{}

// NewEngine はEngineの新しいインスタンスを生成する。
func NewEngine() *engine {
	return &engine{}
}

// Candidates は有効ルールを評価し、実行候補を優先度順に返す。
func (e *engine) Candidates(ruleList []model.ModerationRule, message string) []Candidate {
	var blocks, replies []Candidate

	for _, rule := range ruleList {
		if !rule.Enabled {
			continue
		}
		switch rule.Type {
		case model.RuleTypeBlockKeyword, model.RuleTypeBlockLink, model.RuleTypeBlockImage, model.RuleTypeRegexMatch:
			if matchesBlockRule(rule, message) {
				blocks = append(blocks, Candidate{Rule: rule, Action: model.ActionHide})
			}
		case model.RuleTypeAutoReply:
			if rule.Keyword != "" && rule.ReplyText != "" && containsFold(message, rule.Keyword) {
				replies = append(replies, Candidate{Rule: rule, Action: model.ActionReply, ReplyText: rule.ReplyText})
			}
		}
	}

	return append(blocks, replies...)
}

// matchesBlockRule はブロック系ルール1件をコメント本文に対して評価する。
func matchesBlockRule(rule model.ModerationRule, message string) bool {
	switch rule.Type {
	case model.RuleTypeBlockKeyword:
		if rule.Keyword == "" {
			return false
		}
		if rule.ExactMatch {
			return strings.EqualFold(strings.TrimSpace(message), rule.Keyword)
		}
		return containsFold(message, rule.Keyword)
	case model.RuleTypeBlockLink:
		return linkPattern.MatchString(message)
	case model.RuleTypeBlockImage:
		return imagePattern.MatchString(message)
	case model.RuleTypeRegexMatch:
		// パターンは作成時に検証済みだが、コンパイル不能なパターンは
		// ルールを不成立として扱い評価を継続する。
		re, err := regexp.Compile("(?i)" + rule.Keyword)
		if err != nil {
			return false
		}
		return re.MatchString(message)
	}
	return false
}

// containsFold は大文字小文字を区別しない部分文字列一致を判定する。
func containsFold(message, keyword string) bool {
	return strings.Contains(strings.ToLower(message), strings.ToLower(keyword))
}
