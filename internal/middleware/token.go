// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/labnote/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
var userIDContextKey = contextKey("user_id")

// tokenValueContextKey はリクエストコンテキストに提示トークン値を格納するためのキー。
// ログアウト時の失効処理で使用する。
var tokenValueContextKey = contextKey("token_value")

// TokenFinder はトークンの検索に必要なインターフェース。
// repository.TokenRepositoryの部分集合として定義する。
type TokenFinder interface {
	FindByValue(ctx context.Context, value string) (*model.Token, error)
}

// NewTokenMiddleware はAuthorizationヘッダーのベアラートークンを検証するミドルウェアを返す。
// 有効なトークンのユーザーIDとトークン値をリクエストコンテキストに注入する。
// トークンがない、不明、または期限切れのリクエストには401 Unauthorizedを返す。
func NewTokenMiddleware(tokenFinder TokenFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. AuthorizationヘッダーからトークンIDを取得
			value := bearerToken(r)
			if value == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			// 2. トークンの有効性を検証（期限切れはリポジトリ側でnil扱い）
			token, err := tokenFinder.FindByValue(r.Context(), value)
			if err != nil {
				slog.Error("failed to find token",
					slog.String("error", err.Error()),
				)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if token == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			// 3. 認証済みユーザーIDとトークン値をコンテキストに注入
			ctx := context.WithValue(r.Context(), userIDContextKey, token.UserID)
			ctx = context.WithValue(ctx, tokenValueContextKey, value)

			// 外側のロギングミドルウェアにも認証済みユーザーIDを伝える
			setContextUserID(r.Context(), token.UserID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken はAuthorizationヘッダーからベアラートークン値を取り出す。
// ヘッダーがない場合やBearerスキームでない場合は空文字列を返す。
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// トークンミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// TokenValueFromContext はリクエストコンテキストから提示トークン値を取得する。
// ログアウト処理での失効対象の特定に使用する。
func TokenValueFromContext(ctx context.Context) (string, error) {
	value, ok := ctx.Value(tokenValueContextKey).(string)
	if !ok || value == "" {
		return "", fmt.Errorf("token value not found in context")
	}
	return value, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// ContextWithTokenValue はコンテキストにトークン値を注入する。
// テスト用。
func ContextWithTokenValue(ctx context.Context, value string) context.Context {
	return context.WithValue(ctx, tokenValueContextKey, value)
}
