package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/abdulkhaliq-cyber/clearcomment/internal/model"
)

// PostgresDedupRepo はPostgreSQLを使用した処理済みイベント台帳リポジトリ。
type PostgresDedupRepo struct {
	db *sql.DB
}

// NewPostgresDedupRepo はPostgresDedupRepoを生成する。
func NewPostgresDedupRepo(db *sql.DB) *PostgresDedupRepo {
	return &PostgresDedupRepo{db: db}
}

// Create は台帳レコードを作成する。
// 同一event_idが既に存在する場合はmodel.ErrDuplicateEventを返す。
// 事前の存在チェックは行わない。SELECTしてからINSERTする方式は
// 並行するWebhook再送との競合で二重処理を許してしまうため、
// 一意制約違反そのものを「処理済み」のシグナルとして扱う。
func (r *PostgresDedupRepo) Create(ctx context.Context, record *model.DedupRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO webhook_event_log (event_id, page_id, event_type, created_at)
		 VALUES ($1, $2, $3, now())`,
		record.EventID, record.PageID, record.EventType,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrDuplicateEvent
		}
		return fmt.Errorf("処理済みイベントの記録に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ DedupRepository = (*PostgresDedupRepo)(nil)
