// Package moderation はルール評価からリモートアクション実行・監査記録までの
// モデレーションの中核を提供する。
package moderation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/abdulkhaliq-cyber/clearcomment/internal/credential"
	"github.com/abdulkhaliq-cyber/clearcomment/internal/facebook"
	"github.com/abdulkhaliq-cyber/clearcomment/internal/metrics"
	"github.com/abdulkhaliq-cyber/clearcomment/internal/model"
	"github.com/abdulkhaliq-cyber/clearcomment/internal/repository"
)

// maxSnapshotLength は監査ログに保存するリモート応答スナップショットの最大文字数。
const maxSnapshotLength = 500

// maxCommentTextLength は監査ログに保存するコメント本文スナップショットの最大文字数。
const maxCommentTextLength = 200

// Executor はアクション実行機能のインターフェースを定義する。
// 自動モデレーション（ワーカー経由）と手動アクション（API経由）の両方が使う
// 唯一のリモート実行経路であり、監査ログはここで必ず記録される。
type Executor interface {
	// Execute は指定アクションをリモートで実行し、監査ログを1件記録する。
	// 成功時はコメントミラーの状態も追従させる。
	// トークン失効はmodel.ErrTokenExpiredとして区別して返す。
	// ruleIDは自動実行時のみ非nil。
	Execute(ctx context.Context, page *model.Page, action model.ActionType, commentID string, ruleID *string, replyText string) error
}

// actionExecutor はExecutorの実装。
// アクセストークンは実行直前に復号し、復号結果を保持しない。
type actionExecutor struct {
	client    facebook.ActionClient
	decrypter credential.Decrypter
	comments  repository.CommentRepository
	logs      repository.LogRepository
	collector metrics.MetricsCollector
	logger    *slog.Logger
}

// NewExecutor はExecutorの新しいインスタンスを生成する。
func NewExecutor(
	client facebook.ActionClient,
	decrypter credential.Decrypter,
	comments repository.CommentRepository,
	logs repository.LogRepository,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *actionExecutor {
	return &actionExecutor{
		client:    client,
		decrypter: decrypter,
		comments:  comments,
		logs:      logs,
		collector: collector,
		logger:    logger,
	}
}

// Execute は指定アクションをリモートで実行し、監査ログを1件記録する。
func (e *actionExecutor) Execute(ctx context.Context, page *model.Page, action model.ActionType, commentID string, ruleID *string, replyText string) error {
	if !model.ValidAction(action) {
		return model.NewInvalidActionError(string(action))
	}

	commentText := e.lookupCommentText(ctx, commentID)

	accessToken, err := e.decrypter.Decrypt(page.AccessTokenEncrypted)
	if err != nil {
		e.audit(ctx, page.ID, action, commentID, commentText, ruleID, false, "credential decrypt failed")
		return fmt.Errorf("アクセストークンの復号に失敗しました: %w", err)
	}

	start := time.Now()
	result, err := e.client.Do(ctx, action, commentID, accessToken, replyText)
	e.collector.RecordActionLatency(time.Since(start))

	if err != nil {
		// ネットワーク層の失敗。リモート応答がないためエラー文字列を記録する。
		e.collector.RecordAction(string(action), false)
		e.audit(ctx, page.ID, action, commentID, commentText, ruleID, false, err.Error())
		return err
	}

	e.collector.RecordAction(string(action), result.Success)
	e.audit(ctx, page.ID, action, commentID, commentText, ruleID, result.Success, result.Body)

	if result.TokenExpired {
		e.logger.Warn("ページのアクセストークンが失効しています",
			slog.String("page_id", page.ID),
			slog.String("action", string(action)),
		)
		return model.ErrTokenExpired
	}
	if !result.Success {
		return fmt.Errorf("リモートアクションが拒否されました: %w",
			model.NewRemoteActionError(string(action), result.StatusCode))
	}

	// コメントミラーをリモート状態に追従させる。
	// ここでの失敗はアクション自体の成否を覆さない（次回UPSERTで収束する）。
	if mirrorErr := e.mirror(ctx, action, commentID); mirrorErr != nil {
		e.logger.Warn("コメントミラーの更新に失敗しました",
			slog.String("comment_id", commentID),
			slog.String("error", mirrorErr.Error()),
		)
	}
	return nil
}

// mirror はアクション成功後のコメントミラー更新を行う。
func (e *actionExecutor) mirror(ctx context.Context, action model.ActionType, commentID string) error {
	switch action {
	case model.ActionHide:
		return e.comments.SetHidden(ctx, commentID, true)
	case model.ActionUnhide:
		return e.comments.SetHidden(ctx, commentID, false)
	case model.ActionDelete:
		return e.comments.Delete(ctx, commentID)
	}
	return nil
}

// lookupCommentText はコメントミラーから本文スナップショットを取得する。
// ミラーに存在しない場合や取得に失敗した場合は空文字を返す（監査自体は続行する）。
func (e *actionExecutor) lookupCommentText(ctx context.Context, commentID string) string {
	comment, err := e.comments.FindByID(ctx, commentID)
	if err != nil || comment == nil {
		return ""
	}
	return comment.Message
}

// audit は監査ログを1件記録する。
// 監査は成功・失敗を問わず必ず行い、記録失敗はログに残すのみとする。
func (e *actionExecutor) audit(ctx context.Context, pageID string, action model.ActionType, commentID, commentText string, ruleID *string, success bool, snapshot string) {
	entry := &model.ModerationLog{
		ID:          uuid.New().String(),
		PageID:      pageID,
		Action:      action,
		CommentID:   commentID,
		CommentText: truncate(commentText, maxCommentTextLength),
		RuleID:      ruleID,
		Success:     success,
		APIResponse: truncate(snapshot, maxSnapshotLength),
	}
	if err := e.logs.Create(ctx, entry); err != nil {
		e.logger.Error("監査ログの記録に失敗しました",
			slog.String("page_id", pageID),
			slog.String("comment_id", commentID),
			slog.String("action", string(action)),
			slog.String("error", err.Error()),
		)
	}
}

// truncate は文字列を指定の最大文字数に切り詰める。
// マルチバイト文字の途中で切断しないよう、ルーン単位で数える。
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
