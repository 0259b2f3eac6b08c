package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/abdulkhaliq-cyber/clearcomment/internal/metrics"
	"github.com/abdulkhaliq-cyber/clearcomment/internal/model"
	"github.com/abdulkhaliq-cyber/clearcomment/internal/repository"
	"github.com/abdulkhaliq-cyber/clearcomment/internal/security"
)

// EventProcessor は検証済みWebhookペイロードの処理機能のインターフェースを定義する。
type EventProcessor interface {
	// Process はペイロードを正規化し、コメントの保存とジョブ投入を行う。
	// 重複イベントと未知ページのエントリはエラーにせずスキップする。
	Process(ctx context.Context, payload *Payload) error
}

// Normalizer はEventProcessorの実装。
// ペイロードをページ許可リスト・重複排除・UPSERT・エンキューへと流す。
type Normalizer struct {
	pages     repository.PageRepository
	comments  repository.CommentRepository
	dedup     repository.DedupRepository
	queue     repository.QueueRepository
	sanitizer security.MessageSanitizerService
	collector metrics.MetricsCollector
	logger    *slog.Logger
}

// NewNormalizer はNormalizerの新しいインスタンスを生成する。
func NewNormalizer(
	pages repository.PageRepository,
	comments repository.CommentRepository,
	dedup repository.DedupRepository,
	queue repository.QueueRepository,
	sanitizer security.MessageSanitizerService,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *Normalizer {
	return &Normalizer{
		pages:     pages,
		comments:  comments,
		dedup:     dedup,
		queue:     queue,
		sanitizer: sanitizer,
		collector: collector,
		logger:    logger,
	}
}

// Process はペイロードを正規化し、コメントの保存とジョブ投入を行う。
// エントリ単位・変更単位で独立に処理し、1件の失敗が他のエントリを道連れにしない。
func (n *Normalizer) Process(ctx context.Context, payload *Payload) error {
	if payload == nil || payload.Object != "page" {
		// page以外のオブジェクト通知は対象外。受理済みのため成功として扱う。
		return nil
	}

	var firstErr error
	for _, entry := range payload.Entry {
		page, err := n.pages.FindByExternalID(ctx, entry.ID)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("ページの検索に失敗しました: %w", err)
			}
			continue
		}
		if page == nil {
			// 許可リストにないページの通知は静かに無視する
			n.logger.Warn("未登録ページのイベントを無視しました",
				slog.String("external_page_id", entry.ID),
			)
			continue
		}

		for _, change := range entry.Changes {
			if !isCommentChange(change) {
				continue
			}
			if err := n.processChange(ctx, page, change.Value); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// processChange はコメント変更1件を処理する。
func (n *Normalizer) processChange(ctx context.Context, page *model.Page, value ChangeValue) error {
	verb := model.Verb(value.Verb)
	if verb != model.VerbAdd && verb != model.VerbEdit {
		// add/edit以外のverb（remove等）は受理するが処理しない
		return nil
	}
	if value.CommentID == "" {
		return model.NewInvalidPayloadError("comment_idが空です")
	}

	// 重複排除: 一意制約違反 = 処理済みイベント
	eventID := model.DedupEventID(value.CommentID, verb)
	err := n.dedup.Create(ctx, &model.DedupRecord{
		EventID:   eventID,
		PageID:    page.ID,
		EventType: "comment_" + string(verb),
	})
	if err != nil {
		if errors.Is(err, model.ErrDuplicateEvent) {
			n.collector.RecordEventDeduped()
			n.logger.Debug("重複イベントをスキップしました",
				slog.String("event_id", eventID),
			)
			return nil
		}
		return fmt.Errorf("重複排除台帳への記録に失敗しました: %w", err)
	}

	message := n.sanitizer.Sanitize(value.Message)

	comment := &model.Comment{
		ID:                value.CommentID,
		PageID:            page.ID,
		PostID:            value.PostID,
		Message:           message,
		AuthorName:        orUnknown(value.SenderName),
		AuthorID:          orUnknown(value.SenderID),
		IsHidden:          value.IsHidden,
		ExternalCreatedAt: time.Unix(value.CreatedTime, 0).UTC(),
	}
	if err := n.comments.Upsert(ctx, comment); err != nil {
		return fmt.Errorf("コメントの保存に失敗しました: %w", err)
	}
	n.collector.RecordCommentUpserted()

	// 既に非表示のコメントと編集イベントはキューに入れない
	if verb != model.VerbAdd || value.IsHidden {
		return nil
	}

	job := &model.QueueJob{
		ID:        uuid.New().String(),
		PageID:    page.ID,
		CommentID: value.CommentID,
		Message:   message,
		Verb:      verb,
		Status:    model.JobStatusPending,
	}
	if apiErr := model.ValidateJobPayload(job); apiErr != nil {
		return apiErr
	}
	if err := n.queue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("ジョブの投入に失敗しました: %w", err)
	}

	n.logger.Info("モデレーションジョブを投入しました",
		slog.String("job_id", job.ID),
		slog.String("comment_id", value.CommentID),
		slog.String("page_id", page.ID),
	)
	return nil
}

// orUnknown は空の送信者情報を既定値に置き換える。
func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
