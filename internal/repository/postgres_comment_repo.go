package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/abdulkhaliq-cyber/clearcomment/internal/model"
)

// PostgresCommentRepo はPostgreSQLを使用したコメントリポジトリ。
type PostgresCommentRepo struct {
	db *sql.DB
}

// NewPostgresCommentRepo はPostgresCommentRepoを生成する。
func NewPostgresCommentRepo(db *sql.DB) *PostgresCommentRepo {
	return &PostgresCommentRepo{db: db}
}

// FindByID は外部コメントIDでコメントを取得する。見つからない場合はnilを返す。
func (r *PostgresCommentRepo) FindByID(ctx context.Context, id string) (*model.Comment, error) {
	comment := &model.Comment{}
	var externalCreatedAt sql.NullTime

	err := r.db.QueryRowContext(ctx,
		`SELECT id, page_id, post_id, message, author_name, author_id,
		        is_hidden, external_created_at, created_at, updated_at
		 FROM comments WHERE id = $1`,
		id,
	).Scan(
		&comment.ID, &comment.PageID, &comment.PostID, &comment.Message,
		&comment.AuthorName, &comment.AuthorID, &comment.IsHidden,
		&externalCreatedAt, &comment.CreatedAt, &comment.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("コメントの取得に失敗しました: %w", err)
	}

	if externalCreatedAt.Valid {
		comment.ExternalCreatedAt = externalCreatedAt.Time
	}

	return comment, nil
}

// Upsert はコメントを外部IDで冪等にUPSERTする。
// 既存行がある場合はmessage、is_hidden、updated_atのみを更新し、
// 作成時の属性（author、post_id、外部作成日時）は保持する。
func (r *PostgresCommentRepo) Upsert(ctx context.Context, comment *model.Comment) error {
	now := time.Now()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO comments (id, page_id, post_id, message, author_name, author_id,
		                       is_hidden, external_created_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO UPDATE SET
		    message = EXCLUDED.message,
		    is_hidden = EXCLUDED.is_hidden,
		    updated_at = EXCLUDED.updated_at`,
		comment.ID, comment.PageID, comment.PostID, comment.Message,
		comment.AuthorName, comment.AuthorID, comment.IsHidden,
		comment.ExternalCreatedAt, now, now,
	)
	if err != nil {
		return fmt.Errorf("コメントのUPSERTに失敗しました: %w", err)
	}
	return nil
}

// SetHidden はコメントの非表示フラグを更新する。
func (r *PostgresCommentRepo) SetHidden(ctx context.Context, id string, hidden bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE comments SET is_hidden = $2, updated_at = now() WHERE id = $1`,
		id, hidden,
	)
	if err != nil {
		return fmt.Errorf("コメントの非表示フラグの更新に失敗しました: %w", err)
	}
	return nil
}

// Delete はコメントを削除する。
func (r *PostgresCommentRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM comments WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("コメントの削除に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ CommentRepository = (*PostgresCommentRepo)(nil)
