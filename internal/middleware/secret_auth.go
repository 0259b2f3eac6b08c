package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/abdulkhaliq-cyber/clearcomment/internal/model"
)

// NewSecretAuthMiddleware は共有シークレットによるBearer認証ミドルウェアを返す。
// スケジューラーからのキュー処理呼び出しなど、内部向けエンドポイントを保護する。
// 比較はタイミング攻撃を避けるため crypto/subtle で行う。
func NewSecretAuthMiddleware(secret string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				slog.Error("scheduler secret is not configured")
				WriteInternalServerError(w)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
				slog.Warn("scheduler authentication failed",
					slog.String("remote", r.RemoteAddr),
					slog.String("path", r.URL.Path),
				)
				writeSchedulerAuthError(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken はAuthorizationヘッダーからBearerトークンを取り出す。
func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := header[len(prefix):]
	if token == "" {
		return "", false
	}
	return token, true
}

func writeSchedulerAuthError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusUnauthorized, &model.APIError{
		Code:     model.ErrCodeSchedulerAuth,
		Message:  "スケジューラーの認証に失敗しました。",
		Category: "auth",
		Action:   "Authorizationヘッダーに正しいシークレットを設定してください。",
	})
}
