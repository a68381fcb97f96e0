package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hitoshi/nestadmin/internal/account"
	"github.com/hitoshi/nestadmin/internal/auth"
	"github.com/hitoshi/nestadmin/internal/character"
	"github.com/hitoshi/nestadmin/internal/config"
	"github.com/hitoshi/nestadmin/internal/dashboard"
	"github.com/hitoshi/nestadmin/internal/database"
	"github.com/hitoshi/nestadmin/internal/gamelog"
	"github.com/hitoshi/nestadmin/internal/handler"
	"github.com/hitoshi/nestadmin/internal/logger"
	"github.com/hitoshi/nestadmin/internal/metrics"
	"github.com/hitoshi/nestadmin/internal/middleware"
	"github.com/hitoshi/nestadmin/internal/model"
	"github.com/hitoshi/nestadmin/internal/repository"
	"github.com/hitoshi/nestadmin/internal/security"
	"github.com/hitoshi/nestadmin/internal/worker/cleanup"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Init はアプリケーションの初期化を行う。
// .envと環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. .envがあれば環境変数に読み込む（既存の値は上書きしない）
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}

	// 3. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetLevel(cfg.LogLevel)
	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "4000"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
		slog.String("session_store", cfg.SessionStore),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// ゲームDBへの接続は最初のクエリ時に確立するため、起動時には接続しない。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	startedAt := time.Now()

	// 1. メトリクス
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	// 2. ゲームDBゲートウェイ（遅延接続）
	gateway := newGateway(cfg, collector)
	defer gateway.Close()

	// 3. セッションストア
	sessionRepo, closeSessions, err := openSessionStore(cfg)
	if err != nil {
		return err
	}
	defer closeSessions()

	// 4. リポジトリの初期化
	accountRepo := repository.NewAccountRepo(gateway)
	characterRepo := repository.NewCharacterRepo(gateway)
	inventoryRepo := repository.NewInventoryRepo(gateway)
	logRepo := repository.NewLogRepo(gateway)
	statsRepo := repository.NewStatsRepo(gateway)

	// 5. ドメインサービスの初期化
	sanitizer := security.NewTextSanitizer()

	allowList := auth.NewAllowList(cfg.AllowedAdmins)
	if allowList.Open() {
		slog.Warn("ALLOWED_ADMINS is empty: every authenticated identity will be admitted as admin")
	}

	providers := buildProviders(cfg)
	if len(providers) == 0 {
		slog.Warn("no oauth provider configured: admin login is unavailable")
	}

	authService := auth.NewService(providers, allowList, sessionRepo, sanitizer,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
	)
	accountService := account.NewService(accountRepo)
	characterService := character.NewService(characterRepo, inventoryRepo)
	logService := gamelog.NewService(logRepo)
	dashboardService := dashboard.NewService(statsRepo, startedAt)

	// 6. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.RateLimitGeneral))
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		SessionFinder:     authService,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,

		Metrics:        collector,
		MetricsHandler: metrics.Handler(registry),

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			BaseURL:       cfg.BaseURL,
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		AccountService:   accountService,
		CharacterService: characterService,
		LogService:       logService,
		DashboardService: dashboardService,
	})

	// 7. 期限切れセッションのクリーンアップをバックグラウンドで実行
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cleanupJob := cleanup.NewCleanupJob(sessionRepo, slog.Default(), collector)
	go cleanupJob.Start(ctx, cfg.SessionCleanupInterval)

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.DBQueryTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
			slog.Int("providers", len(providers)),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serverErr:
		return fmt.Errorf("server listen error: %w", err)
	}
	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 期限切れセッションのクリーンアップを定期実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	sessionRepo, closeSessions, err := openSessionStore(cfg)
	if err != nil {
		return err
	}
	defer closeSessions()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	go func() {
		select {
		case <-stop:
			slog.Info("shutting down worker...")
			cancel()
		case <-ctx.Done():
		}
	}()

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.SessionCleanupInterval),
	)

	// クリーンアップをメインgoroutineで実行（ブロッキング）
	cleanup.NewCleanupJob(sessionRepo, slog.Default(), nil).Start(ctx, cfg.SessionCleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はセッションDBのマイグレーションを実行する。
// ゲームDBのスキーマは外部管理のため対象外。
func runMigrate(cfg *config.Config) error {
	if cfg.SessionStore != config.SessionStorePostgres {
		slog.Info("session store does not use SQL schema, nothing to migrate",
			slog.String("session_store", cfg.SessionStore),
		)
		return nil
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.SessionDatabaseURL)),
	)

	if err := database.RunMigrations(cfg.SessionDatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	target := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(target)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// newGateway はゲームDB（メンバーシップ・ワールド）のゲートウェイを生成する。
func newGateway(cfg *config.Config, observer database.QueryObserver) *database.Gateway {
	return database.NewGateway(database.GatewayConfig{
		MembershipURL: cfg.MembershipDatabaseURL,
		WorldURL:      cfg.WorldDatabaseURL,
		Pool: database.PoolConfig{
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
		},
		QueryTimeout: cfg.DBQueryTimeout,
	}, database.WithObserver(observer))
}

// openSessionStore は設定に応じたセッションストアを開く。
// 返す関数で接続を閉じる。
func openSessionStore(cfg *config.Config) (repository.SessionRepository, func(), error) {
	secret := []byte(cfg.SessionSecret)

	switch cfg.SessionStore {
	case config.SessionStoreRedis:
		client, err := repository.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		slog.Info("session store connection established", slog.String("store", "redis"))
		return repository.NewRedisSessionRepo(client, secret), func() { client.Close() }, nil

	default:
		db, err := database.Open(cfg.SessionDatabaseURL)
		if err != nil {
			return nil, nil, err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to connect to session database: %w", err)
		}
		slog.Info("session store connection established", slog.String("store", "postgres"))
		return repository.NewPostgresSessionRepo(db, secret), func() { db.Close() }, nil
	}
}

// buildProviders は資格情報が揃ったOAuthプロバイダーのみを返す。
// コールバックURLが未設定の場合はローカルのAPIサーバーを指す。
func buildProviders(cfg *config.Config) map[model.Provider]auth.OAuthProvider {
	providers := make(map[model.Provider]auth.OAuthProvider)

	if cfg.GoogleEnabled() {
		providers[model.ProviderGoogle] = auth.NewGoogleOAuthProvider(auth.ProviderConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  redirectURL(cfg, cfg.GoogleRedirectURL, model.ProviderGoogle),
		})
	}
	if cfg.DiscordEnabled() {
		providers[model.ProviderDiscord] = auth.NewDiscordOAuthProvider(auth.ProviderConfig{
			ClientID:     cfg.DiscordClientID,
			ClientSecret: cfg.DiscordClientSecret,
			RedirectURL:  redirectURL(cfg, cfg.DiscordRedirectURL, model.ProviderDiscord),
		})
	}

	return providers
}

func redirectURL(cfg *config.Config, configured string, provider model.Provider) string {
	if configured != "" {
		return configured
	}
	return fmt.Sprintf("http://localhost:%s/auth/%s/callback", cfg.ServerPort, provider)
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
