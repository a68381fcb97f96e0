package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// セッションストアの種類
const (
	SessionStorePostgres = "postgres"
	SessionStoreRedis    = "redis"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	MembershipDatabaseURL string `validate:"required"`
	WorldDatabaseURL      string `validate:"required"`
	DBMaxOpenConns        int    `validate:"gt=0"`
	DBMaxIdleConns        int    `validate:"gte=0"`
	DBConnMaxIdleTime     time.Duration
	DBQueryTimeout        time.Duration `validate:"gt=0"`

	// OAuth（クライアントIDとシークレットの両方が揃ったプロバイダーのみ有効）
	GoogleClientID      string
	GoogleClientSecret  string
	GoogleRedirectURL   string `validate:"omitempty,url"`
	DiscordClientID     string
	DiscordClientSecret string
	DiscordRedirectURL  string `validate:"omitempty,url"`

	// Admin
	AllowedAdmins []string

	// Session
	SessionSecret          string        `validate:"required,min=16"`
	SessionMaxAge          int           `validate:"gt=0"`
	SessionStore           string        `validate:"oneof=postgres redis"`
	SessionDatabaseURL     string        `validate:"required_if=SessionStore postgres"`
	RedisURL               string        `validate:"required_if=SessionStore redis"`
	SessionCleanupInterval time.Duration `validate:"gt=0"`

	// Rate Limit（req/min）
	RateLimitGeneral int `validate:"gt=0"`

	// Logging
	LogLevel string `validate:"oneof=debug info warn error"`

	// Server
	ServerPort string `validate:"required,numeric"`
	BaseURL    string `validate:"required,url"`

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string `validate:"required"`
}

// GoogleEnabled はGoogle OAuthの資格情報が設定されているかを返す。
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// DiscordEnabled はDiscord OAuthの資格情報が設定されているかを返す。
func (c *Config) DiscordEnabled() bool {
	return c.DiscordClientID != "" && c.DiscordClientSecret != ""
}

// LoadDotEnv はカレントディレクトリの.envファイルを読み込む。
// ファイルが存在しない場合は何もしない。既に設定済みの環境変数は上書きしない。
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定、または値が不正な場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.MembershipDatabaseURL = os.Getenv("MEMBERSHIP_DATABASE_URL")
	cfg.WorldDatabaseURL = os.Getenv("WORLD_DATABASE_URL")
	cfg.DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
	cfg.DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 10)
	cfg.DBConnMaxIdleTime = getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	cfg.DBQueryTimeout = getEnvDuration("DB_QUERY_TIMEOUT", 15*time.Second)

	cfg.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	cfg.GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	cfg.GoogleRedirectURL = os.Getenv("GOOGLE_REDIRECT_URL")
	cfg.DiscordClientID = os.Getenv("DISCORD_CLIENT_ID")
	cfg.DiscordClientSecret = os.Getenv("DISCORD_CLIENT_SECRET")
	cfg.DiscordRedirectURL = os.Getenv("DISCORD_REDIRECT_URL")

	cfg.AllowedAdmins = splitList(os.Getenv("ALLOWED_ADMINS"))

	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.SessionStore = getEnvString("SESSION_STORE", SessionStorePostgres)
	cfg.SessionDatabaseURL = getEnvString("SESSION_DATABASE_URL", cfg.MembershipDatabaseURL)
	cfg.RedisURL = os.Getenv("REDIS_URL")
	cfg.SessionCleanupInterval = getEnvDuration("SESSION_CLEANUP_INTERVAL", time.Hour)

	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.LogLevel = strings.ToLower(getEnvString("LOG_LEVEL", "info"))

	cfg.ServerPort = getEnvString("SERVER_PORT", "4000")
	cfg.BaseURL = os.Getenv("BASE_URL")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// envNames はバリデーションエラーを環境変数名で報告するための対応表。
var envNames = map[string]string{
	"MembershipDatabaseURL":  "MEMBERSHIP_DATABASE_URL",
	"WorldDatabaseURL":       "WORLD_DATABASE_URL",
	"DBMaxOpenConns":         "DB_MAX_OPEN_CONNS",
	"DBMaxIdleConns":         "DB_MAX_IDLE_CONNS",
	"DBQueryTimeout":         "DB_QUERY_TIMEOUT",
	"GoogleRedirectURL":      "GOOGLE_REDIRECT_URL",
	"DiscordRedirectURL":     "DISCORD_REDIRECT_URL",
	"SessionSecret":          "SESSION_SECRET",
	"SessionMaxAge":          "SESSION_MAX_AGE",
	"SessionStore":           "SESSION_STORE",
	"SessionDatabaseURL":     "SESSION_DATABASE_URL",
	"RedisURL":               "REDIS_URL",
	"SessionCleanupInterval": "SESSION_CLEANUP_INTERVAL",
	"RateLimitGeneral":       "RATE_LIMIT_GENERAL",
	"LogLevel":               "LOG_LEVEL",
	"ServerPort":             "SERVER_PORT",
	"BaseURL":                "BASE_URL",
	"CORSAllowedOrigin":      "CORS_ALLOWED_ORIGIN",
}

func validate(cfg *Config) error {
	v := validator.New()
	err := v.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate config: %w", err)
	}

	var invalid []string
	for _, fe := range verrs {
		name, ok := envNames[fe.Field()]
		if !ok {
			name = fe.Field()
		}
		invalid = append(invalid, fmt.Sprintf("%s (%s)", name, fe.Tag()))
	}
	return fmt.Errorf("invalid or missing environment variables: %v", invalid)
}

// splitList はカンマ区切りの値を分割し、前後の空白と空要素を取り除く。
func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
