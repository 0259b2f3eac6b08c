package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/abdulkhaliq-cyber/clearcomment/internal/model"
)

// PostgresLogRepo はPostgreSQLを使用した監査ログリポジトリ。
type PostgresLogRepo struct {
	db *sql.DB
}

// NewPostgresLogRepo はPostgresLogRepoを生成する。
func NewPostgresLogRepo(db *sql.DB) *PostgresLogRepo {
	return &PostgresLogRepo{db: db}
}

// Create は監査ログエントリを作成する。
func (r *PostgresLogRepo) Create(ctx context.Context, entry *model.ModerationLog) error {
	var ruleID sql.NullString
	if entry.RuleID != nil {
		ruleID = sql.NullString{String: *entry.RuleID, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO moderation_logs (id, page_id, action, comment_id, comment_text,
		                              rule_id, success, api_response, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())`,
		entry.ID, entry.PageID, entry.Action, entry.CommentID, entry.CommentText,
		ruleID, entry.Success, entry.APIResponse,
	)
	if err != nil {
		return fmt.Errorf("監査ログの作成に失敗しました: %w", err)
	}
	return nil
}

// ListByPage はページの監査ログを新しい順に最大limit件返す。
func (r *PostgresLogRepo) ListByPage(ctx context.Context, pageID string, limit int) ([]*model.ModerationLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, page_id, action, comment_id, comment_text, rule_id, success, api_response, created_at
		 FROM moderation_logs
		 WHERE page_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		pageID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("監査ログの一覧取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var entries []*model.ModerationLog
	for rows.Next() {
		entry := &model.ModerationLog{}
		var ruleID sql.NullString

		if err := rows.Scan(
			&entry.ID, &entry.PageID, &entry.Action, &entry.CommentID,
			&entry.CommentText, &ruleID, &entry.Success, &entry.APIResponse, &entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("監査ログ行の読み取りに失敗しました: %w", err)
		}

		if ruleID.Valid {
			val := ruleID.String
			entry.RuleID = &val
		}

		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("監査ログ一覧の走査に失敗しました: %w", err)
	}

	return entries, nil
}

// compile-time interface check
var _ LogRepository = (*PostgresLogRepo)(nil)
