package model

import (
	"errors"
	"fmt"
)

// サービス層から返されるセンチネルエラー。
// ハンドラーはerrors.Isで判定してHTTPステータスに変換する。
var (
	// ErrDatabaseUnavailable はDB接続またはクエリ実行の失敗を表す。
	ErrDatabaseUnavailable = errors.New("database unavailable")
	// ErrNotAllowedAdmin はIdPで認証済みだが許可リストに含まれない場合のエラー。
	ErrNotAllowedAdmin = errors.New("not authorized as admin")
	// ErrProviderNotConfigured はクライアントID/シークレット未設定のIdPが指定された場合のエラー。
	ErrProviderNotConfigured = errors.New("oauth provider not configured")
)

// APIError は統一エラーフォーマットを表す。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, data, system
	Details  string // 原因の詳細（任意）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthenticated       = "UNAUTHENTICATED"
	ErrCodeAccountNotFound       = "ACCOUNT_NOT_FOUND"
	ErrCodeCharacterNotFound     = "CHARACTER_NOT_FOUND"
	ErrCodeDatabaseUnavailable   = "DATABASE_UNAVAILABLE"
	ErrCodeProviderNotConfigured = "PROVIDER_NOT_CONFIGURED"
	ErrCodeLogoutFailed          = "LOGOUT_FAILED"
	ErrCodeRateLimitExceeded     = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal              = "INTERNAL_ERROR"
)

// NewUnauthenticatedError は未認証エラーを生成する。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  "Not authenticated",
		Category: "auth",
	}
}

// NewAccountNotFoundError はアカウント未検出エラーを生成する。
func NewAccountNotFoundError(accountName string) *APIError {
	return &APIError{
		Code:     ErrCodeAccountNotFound,
		Message:  "Account not found",
		Category: "data",
		Details:  fmt.Sprintf("no account named %q", accountName),
	}
}

// NewCharacterNotFoundError はキャラクター未検出エラーを生成する。
func NewCharacterNotFoundError(characterID string) *APIError {
	return &APIError{
		Code:     ErrCodeCharacterNotFound,
		Message:  "Character not found",
		Category: "data",
		Details:  fmt.Sprintf("no character with id %q", characterID),
	}
}

// NewDatabaseUnavailableError はDB障害エラーを生成する。
// messageにはエンドポイントごとの説明（例: "Failed to fetch accounts"）を渡す。
func NewDatabaseUnavailableError(message string, cause error) *APIError {
	apiErr := &APIError{
		Code:     ErrCodeDatabaseUnavailable,
		Message:  message,
		Category: "system",
	}
	if cause != nil {
		apiErr.Details = cause.Error()
	}
	return apiErr
}

// NewProviderNotConfiguredError は未設定IdPエラーを生成する。
func NewProviderNotConfiguredError(provider string) *APIError {
	return &APIError{
		Code:     ErrCodeProviderNotConfigured,
		Message:  "OAuth provider is not configured",
		Category: "auth",
		Details:  provider,
	}
}

// NewLogoutFailedError はセッション破棄失敗エラーを生成する。
func NewLogoutFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeLogoutFailed,
		Message:  "Logout failed",
		Category: "auth",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "Internal server error",
		Category: "system",
	}
}
