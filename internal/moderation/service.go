package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/abdulkhaliq-cyber/clearcomment/internal/classifier"
	"github.com/abdulkhaliq-cyber/clearcomment/internal/model"
	"github.com/abdulkhaliq-cyber/clearcomment/internal/repository"
	"github.com/abdulkhaliq-cyber/clearcomment/internal/rules"
)

// Outcome はコメント1件のモデレーション結果。
type Outcome struct {
	// ActionTaken は実行されたアクション。何も実行されなかった場合は空。
	ActionTaken model.ActionType
	// MatchedRuleID は発火したルールのID。機械判定による実行時は空。
	MatchedRuleID string
}

// Service は自動モデレーションと手動アクションのインターフェースを定義する。
type Service interface {
	// Moderate はコメントをページのルールで評価し、最初に成功した
	// アクション1件を実行する。ルール不成立は結果が空のOutcomeを返す（エラーではない）。
	Moderate(ctx context.Context, pageID, commentID, message string) (Outcome, error)

	// ManualAction は運用者の指示によるアクションを実行する。
	// ルール評価を経ず、監査ログにはルールIDなし（手動実行）として記録される。
	ManualAction(ctx context.Context, pageID string, action model.ActionType, commentID, replyText string) error
}

// service はServiceの実装。
type service struct {
	pages      repository.PageRepository
	ruleRepo   repository.RuleRepository
	engine     rules.Engine
	executor   Executor
	classifier classifier.Classifier // 任意。nilの場合は機械判定を行わない
	logger     *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
// clsはnilを許容する（機械判定フォールバックの無効化）。
func NewService(
	pages repository.PageRepository,
	ruleRepo repository.RuleRepository,
	engine rules.Engine,
	executor Executor,
	cls classifier.Classifier,
	logger *slog.Logger,
) *service {
	return &service{
		pages:      pages,
		ruleRepo:   ruleRepo,
		engine:     engine,
		executor:   executor,
		classifier: cls,
		logger:     logger,
	}
}

// Moderate はコメントをページのルールで評価し、最初に成功したアクションを実行する。
// 候補は優先度順に試行し、リモート実行の成功で打ち切る。候補の失敗は
// 次の候補の試行を妨げないが、トークン失効だけは即座に打ち切る。
func (s *service) Moderate(ctx context.Context, pageID, commentID, message string) (Outcome, error) {
	page, err := s.pages.FindByID(ctx, pageID)
	if err != nil {
		return Outcome{}, fmt.Errorf("ページの取得に失敗しました: %w", err)
	}
	if page == nil {
		return Outcome{}, model.ErrUnknownPage
	}

	ruleList, err := s.ruleRepo.ListEnabledByPage(ctx, pageID)
	if err != nil {
		return Outcome{}, fmt.Errorf("ルールの取得に失敗しました: %w", err)
	}

	values := make([]model.ModerationRule, 0, len(ruleList))
	for _, r := range ruleList {
		values = append(values, *r)
	}

	var lastErr error
	for _, candidate := range s.engine.Candidates(values, message) {
		ruleID := candidate.Rule.ID
		err := s.executor.Execute(ctx, page, candidate.Action, commentID, &ruleID, candidate.ReplyText)
		if err == nil {
			if touchErr := s.ruleRepo.TouchLastTriggered(ctx, ruleID, time.Now().UTC()); touchErr != nil {
				s.logger.Warn("ルールの発火時刻の更新に失敗しました",
					slog.String("rule_id", ruleID),
					slog.String("error", touchErr.Error()),
				)
			}
			return Outcome{ActionTaken: candidate.Action, MatchedRuleID: ruleID}, nil
		}
		if errors.Is(err, model.ErrTokenExpired) {
			return Outcome{}, err
		}
		lastErr = err
		s.logger.Warn("アクション候補の実行に失敗しました。次の候補を試行します",
			slog.String("rule_id", ruleID),
			slog.String("action", string(candidate.Action)),
			slog.String("error", err.Error()),
		)
	}
	if lastErr != nil {
		// 候補があったのに1件も成功しなかった場合はジョブとして失敗させ、
		// リトライに委ねる。
		return Outcome{}, lastErr
	}

	// ルール不成立時の機械判定フォールバック
	if s.classifier != nil {
		return s.classifyAndHide(ctx, page, commentID, message)
	}
	return Outcome{}, nil
}

// classifyAndHide はルール不成立のコメントを機械判定にかけ、
// 有害判定時のみHIDEを実行する。判定の失敗はモデレーション全体の
// 失敗として扱わない。
func (s *service) classifyAndHide(ctx context.Context, page *model.Page, commentID, message string) (Outcome, error) {
	verdict, err := s.classifier.Classify(ctx, message)
	if err != nil {
		s.logger.Warn("機械判定に失敗しました。コメントをそのまま残します",
			slog.String("comment_id", commentID),
			slog.String("error", err.Error()),
		)
		return Outcome{}, nil
	}
	if !verdict.Flagged {
		return Outcome{}, nil
	}

	s.logger.Info("機械判定によりコメントを非表示にします",
		slog.String("comment_id", commentID),
		slog.Any("categories", verdict.Categories),
		slog.Float64("confidence", verdict.Confidence),
	)
	if err := s.executor.Execute(ctx, page, model.ActionHide, commentID, nil, ""); err != nil {
		return Outcome{}, err
	}
	return Outcome{ActionTaken: model.ActionHide}, nil
}

// ManualAction は運用者の指示によるアクションを実行する。
func (s *service) ManualAction(ctx context.Context, pageID string, action model.ActionType, commentID, replyText string) error {
	if !model.ValidAction(action) {
		return model.NewInvalidActionError(string(action))
	}
	if action == model.ActionReply && replyText == "" {
		return model.NewInvalidPayloadError("replyTextが空です")
	}

	page, err := s.pages.FindByID(ctx, pageID)
	if err != nil {
		return fmt.Errorf("ページの取得に失敗しました: %w", err)
	}
	if page == nil {
		return model.NewPageNotFoundError(pageID)
	}

	return s.executor.Execute(ctx, page, action, commentID, nil, replyText)
}
