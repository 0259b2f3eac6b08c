package rules

import (
	"testing"

	"github.com/abdulkhaliq-cyber/clearcomment/internal/model"
)

func blockKeywordRule(id, keyword string, exact bool) model.ModerationRule {
	return model.ModerationRule{
		ID:         id,
		Type:       model.RuleTypeBlockKeyword,
		Keyword:    keyword,
		ExactMatch: exact,
		Enabled:    true,
	}
}

func autoReplyRule(id, keyword, reply string) model.ModerationRule {
	return model.ModerationRule{
		ID:        id,
		Type:      model.RuleTypeAutoReply,
		Keyword:   keyword,
		ReplyText: reply,
		Enabled:   true,
	}
}

// TestCandidates_CaseInsensitiveSubstring は部分一致が大文字小文字を区別しないことをテストする。
func TestCandidates_CaseInsensitiveSubstring(t *testing.T) {
	e := NewEngine()
	rules := []model.ModerationRule{blockKeywordRule("r1", "spam", false)}

	messages := []string{"SPAM!!", "buy Spam now", "spammy"}
	for _, msg := range messages {
		t.Run(msg, func(t *testing.T) {
			got := e.Candidates(rules, msg)
			if len(got) != 1 {
				t.Fatalf("Candidates(%q) の件数 = %d, want 1", msg, len(got))
			}
			if got[0].Action != model.ActionHide {
				t.Errorf("アクション = %s, want HIDE", got[0].Action)
			}
		})
	}
}

// TestCandidates_ExactMatch はexactMatch指定時に完全一致のみ成立することをテストする。
func TestCandidates_ExactMatch(t *testing.T) {
	e := NewEngine()
	rules := []model.ModerationRule{blockKeywordRule("r1", "spam", true)}

	if got := e.Candidates(rules, "spammy"); len(got) != 0 {
		t.Errorf("exactMatchルールが部分一致 %q に成立した", "spammy")
	}
	if got := e.Candidates(rules, "SPAM"); len(got) != 1 {
		t.Errorf("exactMatchルールが完全一致 %q に成立しなかった", "SPAM")
	}
	if got := e.Candidates(rules, "  spam  "); len(got) != 1 {
		t.Errorf("exactMatchルールが前後空白付きの完全一致に成立しなかった")
	}
}

// TestCandidates_BlockBeforeReply はブロック系ルールがAUTO_REPLYより優先されることをテストする。
func TestCandidates_BlockBeforeReply(t *testing.T) {
	e := NewEngine()
	rules := []model.ModerationRule{
		autoReplyRule("reply1", "price", "DMで案内します"),
		blockKeywordRule("block1", "spam", false),
	}

	got := e.Candidates(rules, "spam price list")
	if len(got) != 2 {
		t.Fatalf("候補件数 = %d, want 2", len(got))
	}
	if got[0].Rule.ID != "block1" || got[0].Action != model.ActionHide {
		t.Errorf("先頭候補 = %s/%s, want block1/HIDE", got[0].Rule.ID, got[0].Action)
	}
	if got[1].Rule.ID != "reply1" || got[1].Action != model.ActionReply {
		t.Errorf("2番目の候補 = %s/%s, want reply1/REPLY", got[1].Rule.ID, got[1].Action)
	}
	if got[1].ReplyText != "DMで案内します" {
		t.Errorf("ReplyText = %q", got[1].ReplyText)
	}
}

// TestCandidates_TierPreservesOrder は各ティア内で入力順が保たれることをテストする。
func TestCandidates_TierPreservesOrder(t *testing.T) {
	e := NewEngine()
	rules := []model.ModerationRule{
		blockKeywordRule("newer", "spam", false),
		blockKeywordRule("older", "spam", false),
	}

	got := e.Candidates(rules, "spam")
	if len(got) != 2 {
		t.Fatalf("候補件数 = %d, want 2", len(got))
	}
	if got[0].Rule.ID != "newer" || got[1].Rule.ID != "older" {
		t.Errorf("候補順 = [%s, %s], want [newer, older]", got[0].Rule.ID, got[1].Rule.ID)
	}
}

// TestCandidates_DisabledRuleSkipped は無効化されたルールが評価されないことをテストする。
func TestCandidates_DisabledRuleSkipped(t *testing.T) {
	e := NewEngine()
	rule := blockKeywordRule("r1", "spam", false)
	rule.Enabled = false

	if got := e.Candidates([]model.ModerationRule{rule}, "spam"); len(got) != 0 {
		t.Errorf("無効化されたルールが候補に含まれた")
	}
}

// TestCandidates_NoRules はルールなしのページが即座に空を返すことをテストする。
func TestCandidates_NoRules(t *testing.T) {
	e := NewEngine()
	if got := e.Candidates(nil, "anything"); len(got) != 0 {
		t.Errorf("ルールなしで候補が返った: %d件", len(got))
	}
}

// TestCandidates_BlockLink はBLOCK_LINKルールのURL検出をテストする。
func TestCandidates_BlockLink(t *testing.T) {
	e := NewEngine()
	rules := []model.ModerationRule{{ID: "r1", Type: model.RuleTypeBlockLink, Enabled: true}}

	cases := []struct {
		message string
		want    int
	}{
		{"check https://spam.example/offer", 1},
		{"visit www.spam.example now", 1},
		{"リンクなしの普通のコメント", 0},
	}

	for _, tc := range cases {
		t.Run(tc.message, func(t *testing.T) {
			if got := e.Candidates(rules, tc.message); len(got) != tc.want {
				t.Errorf("候補件数 = %d, want %d", len(got), tc.want)
			}
		})
	}
}

// TestCandidates_BlockImage はBLOCK_IMAGEルールの画像URL検出をテストする。
func TestCandidates_BlockImage(t *testing.T) {
	e := NewEngine()
	rules := []model.ModerationRule{{ID: "r1", Type: model.RuleTypeBlockImage, Enabled: true}}

	if got := e.Candidates(rules, "see https://cdn.example/pic.JPG"); len(got) != 1 {
		t.Error("画像URLを含むコメントが成立しなかった")
	}
	if got := e.Candidates(rules, "see https://example.com/page"); len(got) != 0 {
		t.Error("画像でないURLで成立した")
	}
}

// TestCandidates_RegexMatch はREGEX_MATCHルールのパターン評価をテストする。
func TestCandidates_RegexMatch(t *testing.T) {
	e := NewEngine()

	rules := []model.ModerationRule{{ID: "r1", Type: model.RuleTypeRegexMatch, Keyword: `v[i1]agra`, Enabled: true}}
	if got := e.Candidates(rules, "cheap V1AGRA here"); len(got) != 1 {
		t.Error("正規表現ルールが成立しなかった")
	}

	// コンパイル不能なパターンは不成立として扱い、panicしない
	broken := []model.ModerationRule{{ID: "r2", Type: model.RuleTypeRegexMatch, Keyword: `([`, Enabled: true}}
	if got := e.Candidates(broken, "anything"); len(got) != 0 {
		t.Error("不正な正規表現パターンが成立した")
	}
}

// TestCandidates_AutoReplyRequiresReplyText はreplyTextのないAUTO_REPLYが不成立になることをテストする。
func TestCandidates_AutoReplyRequiresReplyText(t *testing.T) {
	e := NewEngine()
	rules := []model.ModerationRule{{ID: "r1", Type: model.RuleTypeAutoReply, Keyword: "price", Enabled: true}}

	if got := e.Candidates(rules, "price please"); len(got) != 0 {
		t.Error("replyTextのないAUTO_REPLYルールが候補に含まれた")
	}
}
