// Package queue はモデレーションキューのワーカーとスケジューラを提供する。
// バッチ単位のジョブ選択、原子的な獲得、試行上限付きのリトライを含む。
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/abdulkhaliq-cyber/clearcomment/internal/metrics"
	"github.com/abdulkhaliq-cyber/clearcomment/internal/model"
	"github.com/abdulkhaliq-cyber/clearcomment/internal/moderation"
	"github.com/abdulkhaliq-cyber/clearcomment/internal/repository"
)

// Summary はバッチ1回の処理結果。
type Summary struct {
	// Selected は選択されたジョブ数。
	Selected int
	// Claimed は獲得に成功したジョブ数。他の起動と競合した分だけSelectedより減る。
	Claimed int
	// Completed は正常完了したジョブ数。
	Completed int
	// Failed は失敗したジョブ数。
	Failed int
}

// Worker はキュージョブのバッチ処理を行う。
// 同一バッチ内のジョブは作成日時の昇順で逐次処理し、
// 1件の失敗が他のジョブを道連れにしない。
type Worker struct {
	queue       repository.QueueRepository
	moderator   moderation.Service
	collector   metrics.MetricsCollector
	logger      *slog.Logger
	batchSize   int
	maxAttempts int
}

// NewWorker はWorkerの新しいインスタンスを生成する。
// batchSizeが0以下の場合は10、maxAttemptsが0以下の場合は3を使用する。
func NewWorker(
	queue repository.QueueRepository,
	moderator moderation.Service,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	batchSize, maxAttempts int,
) *Worker {
	if batchSize <= 0 {
		batchSize = 10
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Worker{
		queue:       queue,
		moderator:   moderator,
		collector:   collector,
		logger:      logger,
		batchSize:   batchSize,
		maxAttempts: maxAttempts,
	}
}

// ProcessBatch は処理対象ジョブを最大バッチサイズ件選択し、1件ずつ処理する。
// 選択と獲得は分離されており、獲得は条件付きUPDATEで排他される。
// 獲得に失敗したジョブ（他の起動が先に獲得した等）は黙ってスキップする。
func (w *Worker) ProcessBatch(ctx context.Context) (Summary, error) {
	ids, err := w.queue.SelectEligible(ctx, w.batchSize, w.maxAttempts)
	if err != nil {
		return Summary{}, fmt.Errorf("ジョブの選択に失敗しました: %w", err)
	}

	summary := Summary{Selected: len(ids)}
	if len(ids) == 0 {
		return summary, nil
	}

	for _, id := range ids {
		job, err := w.queue.Claim(ctx, id, w.maxAttempts)
		if err != nil {
			w.logger.Error("ジョブの獲得に失敗しました",
				slog.String("job_id", id),
				slog.String("error", err.Error()),
			)
			continue
		}
		if job == nil {
			// 選択から獲得までの間に他の起動が処理した
			continue
		}
		summary.Claimed++

		if err := w.processJob(ctx, job); err != nil {
			summary.Failed++
			w.collector.RecordJobProcessed("failed")
			w.markFailed(ctx, job, err)
		} else {
			summary.Completed++
			w.collector.RecordJobProcessed("completed")
			if err := w.queue.MarkCompleted(ctx, job.ID); err != nil {
				w.logger.Error("ジョブの完了記録に失敗しました",
					slog.String("job_id", job.ID),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	w.logger.Info("バッチ処理が完了しました",
		slog.Int("selected", summary.Selected),
		slog.Int("claimed", summary.Claimed),
		slog.Int("completed", summary.Completed),
		slog.Int("failed", summary.Failed),
	)
	return summary, nil
}

// processJob はジョブ1件をモデレーションにかける。
func (w *Worker) processJob(ctx context.Context, job *model.QueueJob) error {
	if apiErr := model.ValidateJobPayload(job); apiErr != nil {
		return apiErr
	}

	outcome, err := w.moderator.Moderate(ctx, job.PageID, job.CommentID, job.Message)
	if err != nil {
		return err
	}

	if outcome.ActionTaken != "" {
		w.logger.Info("モデレーションアクションを実行しました",
			slog.String("job_id", job.ID),
			slog.String("comment_id", job.CommentID),
			slog.String("action", string(outcome.ActionTaken)),
			slog.String("rule_id", outcome.MatchedRuleID),
		)
	}
	return nil
}

// markFailed はジョブを失敗として記録し、試行上限到達を可観測にする。
// ページ削除やトークン失効のような再試行で解決しない失敗も、
// 状態遷移としては通常の失敗と同じくFAILEDに落とす。
func (w *Worker) markFailed(ctx context.Context, job *model.QueueJob, jobErr error) {
	if err := w.queue.MarkFailed(ctx, job.ID, jobErr.Error()); err != nil {
		w.logger.Error("ジョブの失敗記録に失敗しました",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	// Claimの時点でattemptsはインクリメント済み
	if job.Attempts >= w.maxAttempts {
		w.collector.RecordJobExhausted()
		w.logger.Warn("ジョブが試行上限に達しました",
			slog.String("job_id", job.ID),
			slog.String("comment_id", job.CommentID),
			slog.Int("attempts", job.Attempts),
			slog.String("last_error", jobErr.Error()),
		)
	}

	if errors.Is(jobErr, model.ErrTokenExpired) {
		w.logger.Warn("トークン失効によりジョブが失敗しました。ページの再接続が必要です",
			slog.String("job_id", job.ID),
			slog.String("page_id", job.PageID),
		)
	}
}
