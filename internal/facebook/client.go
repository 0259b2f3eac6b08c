// Package facebook はFacebook Graph APIのクライアントを提供する。
// コメントに対するモデレーションアクション（非表示、削除、返信、リアクション）の
// 実行と、トークン失効の判別を含む。
package facebook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/abdulkhaliq-cyber/clearcomment/internal/model"
)

const (
	// errCodeTokenExpired はGraph APIがアクセストークン失効時に返すエラーコード。
	errCodeTokenExpired = 190
	// maxResponseBody はレスポンスボディを読み取る最大バイト数。
	// 監査ログのスナップショット用途で全文は不要。
	maxResponseBody = 4096
)

// Result はGraph APIアクション1回の実行結果。
// 監査ログのスナップショット生成に必要な情報を保持する。
type Result struct {
	Success      bool
	TokenExpired bool
	StatusCode   int
	Body         string
}

// ActionClient はコメントへのモデレーションアクション実行機能のインターフェースを定義する。
type ActionClient interface {
	// Do は指定のアクションをコメントに対して実行する。
	// replyTextはREPLYのときのみ使用される。
	// ネットワーク到達性の問題はerrで返し、リモート側の拒否は
	// Result.Success=falseで返す。両者は呼び出し元でリトライ判断が異なる。
	Do(ctx context.Context, action model.ActionType, commentID, accessToken, replyText string) (Result, error)
}

// Client はActionClientのGraph API実装。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string // テスト用にベースURLを差し替え可能
}

// NewClient はClientの新しいインスタンスを生成する。
// baseURLには https://graph.facebook.com/v19.0 のようなバージョン付きベースを渡す。
func NewClient(httpClient *http.Client, logger *slog.Logger, baseURL string) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    baseURL,
	}
}

// graphError はGraph APIのエラーレスポンスの一部。
type graphError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// Do は指定のアクションをコメントに対して実行する。
func (c *Client) Do(ctx context.Context, action model.ActionType, commentID, accessToken, replyText string) (Result, error) {
	if action == model.ActionTest {
		// TESTはリモート呼び出しを行わない疎通確認用アクション。
		return Result{Success: true, StatusCode: http.StatusOK, Body: `{"test":true}`}, nil
	}

	req, err := c.buildRequest(ctx, action, commentID, accessToken, replyText)
	if err != nil {
		return Result{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Graph APIの呼び出しに失敗しました",
			slog.String("action", string(action)),
			slog.String("comment_id", commentID),
			slog.String("error", err.Error()),
		)
		return Result{}, fmt.Errorf("Graph APIの呼び出しに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return Result{}, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	result := Result{
		Success:    resp.StatusCode >= 200 && resp.StatusCode < 300,
		StatusCode: resp.StatusCode,
		Body:       string(body),
	}

	if !result.Success {
		var ge graphError
		if json.Unmarshal(body, &ge) == nil && ge.Error.Code == errCodeTokenExpired {
			result.TokenExpired = true
		}
		c.logger.Warn("Graph APIがエラーステータスを返しました",
			slog.String("action", string(action)),
			slog.String("comment_id", commentID),
			slog.Int("http_status", resp.StatusCode),
			slog.Bool("token_expired", result.TokenExpired),
		)
	}

	return result, nil
}

// buildRequest はアクション種別に応じたGraph APIリクエストを構築する。
// アクセストークンはHIDE/UNHIDE/REPLYではJSONボディに、
// DELETE/LIKE/UNLIKEではクエリ文字列に載せる。
func (c *Client) buildRequest(ctx context.Context, action model.ActionType, commentID, accessToken, replyText string) (*http.Request, error) {
	commentURL := c.baseURL + "/" + url.PathEscape(commentID)

	switch action {
	case model.ActionHide:
		return c.jsonPost(ctx, commentURL, map[string]any{"is_hidden": true, "access_token": accessToken})
	case model.ActionUnhide:
		return c.jsonPost(ctx, commentURL, map[string]any{"is_hidden": false, "access_token": accessToken})
	case model.ActionReply:
		return c.jsonPost(ctx, commentURL+"/comments", map[string]any{"message": replyText, "access_token": accessToken})
	case model.ActionDelete:
		return http.NewRequestWithContext(ctx, http.MethodDelete, commentURL+"?access_token="+url.QueryEscape(accessToken), nil)
	case model.ActionLike:
		return http.NewRequestWithContext(ctx, http.MethodPost, commentURL+"/likes?access_token="+url.QueryEscape(accessToken), nil)
	case model.ActionUnlike:
		return http.NewRequestWithContext(ctx, http.MethodDelete, commentURL+"/likes?access_token="+url.QueryEscape(accessToken), nil)
	}

	return nil, model.NewInvalidActionError(string(action))
}

// jsonPost はJSONボディ付きPOSTリクエストを構築する。
func (c *Client) jsonPost(ctx context.Context, reqURL string, payload map[string]any) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("リクエストボディの生成に失敗しました: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}
