package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/nestadmin/internal/metrics"
	"github.com/hitoshi/nestadmin/internal/middleware"
	"github.com/hitoshi/nestadmin/internal/model"
)

const oauthStateCookie = "oauth_state"

// ログイン失敗時にBASE_URLへ付与するerrorクエリの値
const (
	loginErrorAuthFailed    = "auth_failed"
	loginErrorNotAuthorized = "not_authorized"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	GetLoginURL(provider model.Provider, state string) (string, error)
	HandleCallback(ctx context.Context, provider model.Provider, code string) (*model.Session, error)
	Logout(ctx context.Context, sessionID string) error
	GetCurrentPrincipal(ctx context.Context, sessionID string) (*model.AdminPrincipal, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	BaseURL       string
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はOAuth認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
	metrics metrics.MetricsCollector
}

// NewAuthHandler はAuthHandlerを生成する。collectorはnilでもよい。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig, collector metrics.MetricsCollector) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
		metrics: collector,
	}
}

// meResponse は/auth/meのレスポンス。未ログインの場合userはnull。
type meResponse struct {
	User *model.AdminPrincipal `json:"user"`
}

// Login はOAuthフローを開始する。
// GET /auth/{provider}
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	providerName := chi.URLParam(r, "provider")
	provider, err := model.ParseProvider(providerName)
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewProviderNotConfiguredError(providerName))
		return
	}

	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	loginURL, err := h.service.GetLoginURL(provider, state)
	if err != nil {
		if errors.Is(err, model.ErrProviderNotConfigured) {
			middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewProviderNotConfiguredError(providerName))
			return
		}
		slog.Error("failed to build login url",
			slog.String("provider", providerName),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}

	// stateをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/auth",
		MaxAge:   600, // 10分
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, loginURL, http.StatusTemporaryRedirect)
}

// Callback はOAuthコールバックを処理する。
// 成功時はBASE_URLへ、失敗時はBASE_URL?error=...へリダイレクトする。
// GET /auth/{provider}/callback?code=xxx&state=yyy
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	providerName := chi.URLParam(r, "provider")
	provider, err := model.ParseProvider(providerName)
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewProviderNotConfiguredError(providerName))
		return
	}

	// 1. stateの検証（CSRF対策）
	state := r.URL.Query().Get("state")
	stateCookie, cookieErr := r.Cookie(oauthStateCookie)
	h.clearCookie(w, oauthStateCookie, "/auth", "")
	if cookieErr != nil || state == "" || stateCookie.Value != state {
		slog.Warn("oauth state mismatch", slog.String("provider", providerName))
		h.loginFailed(w, r, provider, loginErrorAuthFailed)
		return
	}

	// 2. 認可コードの取得（IdP側で拒否された場合はerrorクエリのみが付く）
	code := r.URL.Query().Get("code")
	if code == "" {
		slog.Warn("oauth callback without code",
			slog.String("provider", providerName),
			slog.String("idp_error", r.URL.Query().Get("error")),
		)
		h.loginFailed(w, r, provider, loginErrorAuthFailed)
		return
	}

	// 3. 認証処理
	session, err := h.service.HandleCallback(r.Context(), provider, code)
	if err != nil {
		if errors.Is(err, model.ErrNotAllowedAdmin) {
			h.loginFailed(w, r, provider, loginErrorNotAuthorized)
			return
		}
		slog.Error("oauth callback failed",
			slog.String("provider", providerName),
			slog.String("error", err.Error()),
		)
		h.loginFailed(w, r, provider, loginErrorAuthFailed)
		return
	}

	// 4. セッションCookieを設定（HTTP Only）
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	if h.metrics != nil {
		h.metrics.RecordLogin(string(provider), metrics.LoginSuccess)
	}

	// 5. フロントエンドにリダイレクト
	http.Redirect(w, r, h.config.BaseURL, http.StatusTemporaryRedirect)
}

// Me は現在ログイン中の管理者を返す。未ログインでも200で{user:null}を返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	resp := meResponse{}

	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err == nil && cookie.Value != "" {
		principal, err := h.service.GetCurrentPrincipal(r.Context(), cookie.Value)
		if err != nil {
			slog.Error("failed to get current principal", slog.String("error", err.Error()))
		}
		resp.User = principal
	}

	writeJSON(w, http.StatusOK, resp)
}

// Logout はセッションを破棄する。失敗してもCookieはクリアする。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var logoutErr error
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
		logoutErr = h.service.Logout(r.Context(), cookie.Value)
	}

	h.clearCookie(w, middleware.SessionCookieName, "/", h.config.CookieDomain)

	if logoutErr != nil {
		slog.Error("failed to logout", slog.String("error", logoutErr.Error()))
		middleware.WriteErrorResponse(w, http.StatusInternalServerError, model.NewLogoutFailedError())
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *AuthHandler) loginFailed(w http.ResponseWriter, r *http.Request, provider model.Provider, reason string) {
	if h.metrics != nil {
		result := metrics.LoginFailed
		if reason == loginErrorNotAuthorized {
			result = metrics.LoginNotAuthorized
		}
		h.metrics.RecordLogin(string(provider), result)
	}
	http.Redirect(w, r, withErrorQuery(h.config.BaseURL, reason), http.StatusTemporaryRedirect)
}

func (h *AuthHandler) clearCookie(w http.ResponseWriter, name, path, domain string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		Domain:   domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// withErrorQuery はbaseURLにerrorクエリを付与する。
func withErrorQuery(baseURL, reason string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return baseURL + "?error=" + url.QueryEscape(reason)
	}
	q := u.Query()
	q.Set("error", reason)
	u.RawQuery = q.Encode()
	return u.String()
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
