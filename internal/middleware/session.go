// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/nestadmin/internal/model"
)

// SessionCookieName はセッションIDを保持するCookieの名前。
const SessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// principalContextKey はリクエストコンテキストに認証済み管理者を格納するためのキー。
var principalContextKey = contextKey("principal")

// PrincipalFinder はセッションIDから管理者を解決するインターフェース。
// auth.Serviceが実装する。
type PrincipalFinder interface {
	// GetCurrentPrincipal はセッションが存在しない、または期限切れの場合nilを返す。
	GetCurrentPrincipal(ctx context.Context, sessionID string) (*model.AdminPrincipal, error)
}

// NewSessionMiddleware はHTTP Only Cookieからセッションを読み取り、
// 有効性を検証するミドルウェアを返す。
// 認証済み管理者をリクエストコンテキストに注入する。
// 未認証リクエストには401を返し、後続のハンドラーは実行しない。
func NewSessionMiddleware(finder PrincipalFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
				return
			}

			principal, err := finder.GetCurrentPrincipal(r.Context(), cookie.Value)
			if err != nil {
				slog.Error("failed to find session",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
				return
			}
			if principal == nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
				return
			}

			annotateAdmin(r.Context(), principal.Key())
			ctx := ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PrincipalFromContext はリクエストコンテキストから認証済み管理者を取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func PrincipalFromContext(ctx context.Context) (*model.AdminPrincipal, bool) {
	p, ok := ctx.Value(principalContextKey).(*model.AdminPrincipal)
	return p, ok && p != nil
}

// ContextWithPrincipal はコンテキストに管理者を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithPrincipal(ctx context.Context, principal *model.AdminPrincipal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}
