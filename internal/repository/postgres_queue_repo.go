package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/abdulkhaliq-cyber/clearcomment/internal/model"
)

// maxErrorLength はジョブのlast_errorに保存するメッセージの最大長。
// 運用者の診断に十分な長さを残しつつ、巨大なレスポンスボディの保存を防ぐ。
const maxErrorLength = 500

// PostgresQueueRepo はPostgreSQLを使用したモデレーションキューリポジトリ。
type PostgresQueueRepo struct {
	db *sql.DB
}

// NewPostgresQueueRepo はPostgresQueueRepoを生成する。
func NewPostgresQueueRepo(db *sql.DB) *PostgresQueueRepo {
	return &PostgresQueueRepo{db: db}
}

// Enqueue はPENDING状態のジョブを作成する。
func (r *PostgresQueueRepo) Enqueue(ctx context.Context, job *model.QueueJob) error {
	now := time.Now()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO moderation_queue (id, page_id, comment_id, message, verb,
		                               status, attempts, last_error, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, 0, '', $7, $8)`,
		job.ID, job.PageID, job.CommentID, job.Message, job.Verb,
		model.JobStatusPending, now, now,
	)
	if err != nil {
		return fmt.Errorf("ジョブのエンキューに失敗しました: %w", err)
	}
	return nil
}

// SelectEligible は処理対象ジョブのIDを作成日時の昇順（古い順）で最大limit件返す。
// attemptsが上限に達したFAILEDジョブは終端状態として除外される。
func (r *PostgresQueueRepo) SelectEligible(ctx context.Context, limit, maxAttempts int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM moderation_queue
		 WHERE status IN ($1, $2) AND attempts < $3
		 ORDER BY created_at ASC
		 LIMIT $4`,
		model.JobStatusPending, model.JobStatusFailed, maxAttempts, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("処理対象ジョブの選択に失敗しました: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ジョブIDの読み取りに失敗しました: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ジョブ一覧の走査に失敗しました: %w", err)
	}

	return ids, nil
}

// Claim はジョブをPROCESSINGに遷移させ、attemptsをインクリメントする。
// 獲得と加算を単一の条件付きUPDATEで行うため、ワーカー起動が重なっても
// 同一ジョブが二重に処理されることはない。条件を満たさない
// （他の起動に先に獲得された等の）場合はnilを返す。
func (r *PostgresQueueRepo) Claim(ctx context.Context, id string, maxAttempts int) (*model.QueueJob, error) {
	job := &model.QueueJob{}

	err := r.db.QueryRowContext(ctx,
		`UPDATE moderation_queue
		 SET status = $1, attempts = attempts + 1, updated_at = now()
		 WHERE id = $2 AND status IN ($3, $4) AND attempts < $5
		 RETURNING id, page_id, comment_id, message, verb, status,
		           attempts, last_error, created_at, updated_at`,
		model.JobStatusProcessing, id,
		model.JobStatusPending, model.JobStatusFailed, maxAttempts,
	).Scan(
		&job.ID, &job.PageID, &job.CommentID, &job.Message, &job.Verb,
		&job.Status, &job.Attempts, &job.LastError, &job.CreatedAt, &job.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ジョブの獲得に失敗しました: %w", err)
	}

	return job, nil
}

// MarkCompleted はジョブをCOMPLETEDに遷移させる。
func (r *PostgresQueueRepo) MarkCompleted(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE moderation_queue SET status = $1, updated_at = now() WHERE id = $2`,
		model.JobStatusCompleted, id,
	)
	if err != nil {
		return fmt.Errorf("ジョブの完了記録に失敗しました: %w", err)
	}
	return nil
}

// MarkFailed はジョブをFAILEDに遷移させ、エラーメッセージを記録する。
func (r *PostgresQueueRepo) MarkFailed(ctx context.Context, id string, jobErr string) error {
	// エラー文は日本語を含むため、マルチバイト文字の途中で切らない
	if len(jobErr) > maxErrorLength {
		if runes := []rune(jobErr); len(runes) > maxErrorLength {
			jobErr = string(runes[:maxErrorLength])
		}
	}

	_, err := r.db.ExecContext(ctx,
		`UPDATE moderation_queue SET status = $1, last_error = $2, updated_at = now() WHERE id = $3`,
		model.JobStatusFailed, jobErr, id,
	)
	if err != nil {
		return fmt.Errorf("ジョブの失敗記録に失敗しました: %w", err)
	}
	return nil
}

// FindByID は指定IDのジョブを取得する。見つからない場合はnilを返す。
func (r *PostgresQueueRepo) FindByID(ctx context.Context, id string) (*model.QueueJob, error) {
	job := &model.QueueJob{}

	err := r.db.QueryRowContext(ctx,
		`SELECT id, page_id, comment_id, message, verb, status,
		        attempts, last_error, created_at, updated_at
		 FROM moderation_queue WHERE id = $1`,
		id,
	).Scan(
		&job.ID, &job.PageID, &job.CommentID, &job.Message, &job.Verb,
		&job.Status, &job.Attempts, &job.LastError, &job.CreatedAt, &job.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ジョブの取得に失敗しました: %w", err)
	}

	return job, nil
}

// compile-time interface check
var _ QueueRepository = (*PostgresQueueRepo)(nil)
