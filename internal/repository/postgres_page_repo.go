package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/abdulkhaliq-cyber/clearcomment/internal/model"
)

// PostgresPageRepo はPostgreSQLを使用したページリポジトリ。
type PostgresPageRepo struct {
	db *sql.DB
}

// NewPostgresPageRepo はPostgresPageRepoを生成する。
func NewPostgresPageRepo(db *sql.DB) *PostgresPageRepo {
	return &PostgresPageRepo{db: db}
}

// FindByID は内部IDでページを取得する。見つからない場合はnilを返す。
func (r *PostgresPageRepo) FindByID(ctx context.Context, id string) (*model.Page, error) {
	page := &model.Page{}

	err := r.db.QueryRowContext(ctx,
		`SELECT id, external_page_id, name, access_token_encrypted,
		        moderation_enabled, created_at, updated_at
		 FROM pages WHERE id = $1`,
		id,
	).Scan(
		&page.ID, &page.ExternalPageID, &page.Name, &page.AccessTokenEncrypted,
		&page.ModerationEnabled, &page.CreatedAt, &page.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ページの取得に失敗しました: %w", err)
	}

	return page, nil
}

// FindByExternalID は外部ページIDでページを検索する。見つからない場合はnilを返す。
func (r *PostgresPageRepo) FindByExternalID(ctx context.Context, externalPageID string) (*model.Page, error) {
	page := &model.Page{}

	err := r.db.QueryRowContext(ctx,
		`SELECT id, external_page_id, name, access_token_encrypted,
		        moderation_enabled, created_at, updated_at
		 FROM pages WHERE external_page_id = $1`,
		externalPageID,
	).Scan(
		&page.ID, &page.ExternalPageID, &page.Name, &page.AccessTokenEncrypted,
		&page.ModerationEnabled, &page.CreatedAt, &page.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("外部IDによるページの検索に失敗しました: %w", err)
	}

	return page, nil
}

// compile-time interface check
var _ PageRepository = (*PostgresPageRepo)(nil)
