// Package classifier はルール不成立時のフォールバックとして使う
// 機械判定によるコメント分類を提供する。
//
// 分類は任意機能であり、APIキーが未設定の場合は配線されない。
// 呼び出し元は分類失敗をモデレーション全体の失敗として扱わない。
package classifier

import (
	"context"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"
)

// Verdict はコメント1件の分類結果。
type Verdict struct {
	// Flagged は非表示に値する有害コンテンツと判定されたかを示す。
	Flagged bool
	// Categories は判定根拠となったカテゴリ名。
	Categories []string
	// Confidence は判定根拠カテゴリのスコア最大値 (0.0〜1.0)。
	Confidence float64
}

// Classifier はコメント本文の機械判定機能のインターフェースを定義する。
type Classifier interface {
	// Classify はコメント本文を分類し、判定結果を返す。
	// APIの呼び出しに失敗した場合はエラーを返す。
	Classify(ctx context.Context, message string) (Verdict, error)
}

// moderationAPI はOpenAIクライアントのうち分類に使う操作。
// テストでの差し替え用に切り出している。
type moderationAPI interface {
	Moderations(ctx context.Context, request openai.ModerationRequest) (openai.ModerationResponse, error)
}

// OpenAIClassifier はClassifierのOpenAI Moderations API実装。
type OpenAIClassifier struct {
	api    moderationAPI
	logger *slog.Logger
}

// NewOpenAIClassifier はClassifierの新しいインスタンスを生成する。
func NewOpenAIClassifier(apiKey string, logger *slog.Logger) *OpenAIClassifier {
	return &OpenAIClassifier{
		api:    openai.NewClient(apiKey),
		logger: logger,
	}
}

// Classify はコメント本文をOpenAI Moderations APIで分類する。
func (c *OpenAIClassifier) Classify(ctx context.Context, message string) (Verdict, error) {
	resp, err := c.api.Moderations(ctx, openai.ModerationRequest{
		Input: message,
		Model: openai.ModerationTextStable,
	})
	if err != nil {
		c.logger.Warn("コメント分類APIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
		)
		return Verdict{}, fmt.Errorf("コメント分類に失敗しました: %w", err)
	}
	if len(resp.Results) == 0 {
		return Verdict{}, fmt.Errorf("コメント分類の結果が空です")
	}

	return toVerdict(resp.Results[0]), nil
}

// toVerdict はAPIの結果を内部の判定結果に変換する。
func toVerdict(r openai.Result) Verdict {
	v := Verdict{Flagged: r.Flagged}

	type score struct {
		name    string
		flagged bool
		value   float32
	}
	scores := []score{
		{"hate", r.Categories.Hate, r.CategoryScores.Hate},
		{"hate/threatening", r.Categories.HateThreatening, r.CategoryScores.HateThreatening},
		{"harassment", r.Categories.Harassment, r.CategoryScores.Harassment},
		{"harassment/threatening", r.Categories.HarassmentThreatening, r.CategoryScores.HarassmentThreatening},
		{"self-harm", r.Categories.SelfHarm, r.CategoryScores.SelfHarm},
		{"sexual", r.Categories.Sexual, r.CategoryScores.Sexual},
		{"sexual/minors", r.Categories.SexualMinors, r.CategoryScores.SexualMinors},
		{"violence", r.Categories.Violence, r.CategoryScores.Violence},
		{"violence/graphic", r.Categories.ViolenceGraphic, r.CategoryScores.ViolenceGraphic},
	}

	for _, s := range scores {
		if s.flagged {
			v.Categories = append(v.Categories, s.name)
			if sc := float64(s.value); sc > v.Confidence {
				v.Confidence = sc
			}
		}
	}
	return v
}
