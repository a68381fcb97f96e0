package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/nestadmin/internal/metrics"
	"github.com/hitoshi/nestadmin/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	SessionFinder     middleware.PrincipalFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// メトリクス（nilの場合は計測も/metricsも無効）
	Metrics        *metrics.Collector
	MetricsHandler http.Handler

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 参照API
	AccountService   AccountServiceInterface
	CharacterService CharacterServiceInterface
	LogService       LogServiceInterface
	DashboardService DashboardServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Recovery → Logging → Metrics → SecurityHeaders → CORS
//	/api/* のみ: → Session → RateLimit
//
// 認証ルート（/auth/*）とヘルスチェックはセッション検証の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var panics middleware.PanicRecorder
	if deps.Metrics != nil {
		panics = deps.Metrics
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewRecoveryMiddleware(logger, panics))
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware())
	}
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.AuthConfig.CookieSecure))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	var collector metrics.MetricsCollector
	if deps.Metrics != nil {
		collector = deps.Metrics
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig, collector)
	accountHandler := NewAccountHandler(deps.AccountService)
	characterHandler := NewCharacterHandler(deps.CharacterService)
	logHandler := NewLogHandler(deps.LogService)
	dashboardHandler := NewDashboardHandler(deps.DashboardService)

	// --- 認証不要のルート ---

	r.Get("/health", Health)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// 認証ルート（OAuthフロー）
	r.Route("/auth", func(r chi.Router) {
		r.Get("/me", authHandler.Me)
		r.Post("/logout", authHandler.Logout)
		r.Get("/{provider}", authHandler.Login)
		r.Get("/{provider}/callback", authHandler.Callback)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.Middleware())

		r.Get("/dashboard/stats", dashboardHandler.Stats)
		r.Get("/server/status", dashboardHandler.ServerStatus)

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", accountHandler.List)
			r.Get("/{accountName}", accountHandler.Get)
		})

		r.Route("/characters", func(r chi.Router) {
			r.Get("/", characterHandler.List)
			r.Get("/{id}", characterHandler.Get)
			r.Get("/{id}/inventory", characterHandler.Inventory)
		})

		r.Get("/logs", logHandler.List)
	})

	return r
}
