package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/abdulkhaliq-cyber/clearcomment/internal/model"
)

// PostgresRuleRepo はPostgreSQLを使用したモデレーションルールリポジトリ。
type PostgresRuleRepo struct {
	db *sql.DB
}

// NewPostgresRuleRepo はPostgresRuleRepoを生成する。
func NewPostgresRuleRepo(db *sql.DB) *PostgresRuleRepo {
	return &PostgresRuleRepo{db: db}
}

// ListEnabledByPage はページの有効ルールを作成日時の降順で返す。
// ルールエンジンはこの順序のままタイブレークを行うため、
// ORDER BY句を変更すると評価の決定性が壊れる。
func (r *PostgresRuleRepo) ListEnabledByPage(ctx context.Context, pageID string) ([]*model.ModerationRule, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, page_id, type, keyword, reply_text, exact_match,
		        enabled, last_triggered_at, created_at
		 FROM moderation_rules
		 WHERE page_id = $1 AND enabled = true
		 ORDER BY created_at DESC`,
		pageID,
	)
	if err != nil {
		return nil, fmt.Errorf("有効ルールの一覧取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var rules []*model.ModerationRule
	for rows.Next() {
		rule := &model.ModerationRule{}
		var lastTriggeredAt sql.NullTime

		if err := rows.Scan(
			&rule.ID, &rule.PageID, &rule.Type, &rule.Keyword, &rule.ReplyText,
			&rule.ExactMatch, &rule.Enabled, &lastTriggeredAt, &rule.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("ルール行の読み取りに失敗しました: %w", err)
		}

		if lastTriggeredAt.Valid {
			rule.LastTriggeredAt = &lastTriggeredAt.Time
		}

		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ルール一覧の走査に失敗しました: %w", err)
	}

	return rules, nil
}

// Create はルールを作成する。
func (r *PostgresRuleRepo) Create(ctx context.Context, rule *model.ModerationRule) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO moderation_rules (id, page_id, type, keyword, reply_text,
		                               exact_match, enabled, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rule.ID, rule.PageID, rule.Type, rule.Keyword, rule.ReplyText,
		rule.ExactMatch, rule.Enabled, rule.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("ルールの作成に失敗しました: %w", err)
	}
	return nil
}

// TouchLastTriggered はルールの最終発火時刻を更新する。
func (r *PostgresRuleRepo) TouchLastTriggered(ctx context.Context, ruleID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE moderation_rules SET last_triggered_at = $2 WHERE id = $1`,
		ruleID, at,
	)
	if err != nil {
		return fmt.Errorf("最終発火時刻の更新に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ RuleRepository = (*PostgresRuleRepo)(nil)
