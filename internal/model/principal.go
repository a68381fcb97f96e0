// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"time"
)

// Provider は管理者認証に利用する外部IdPを表す。
type Provider string

const (
	// ProviderGoogle はGoogle OAuth 2.0。
	ProviderGoogle Provider = "google"
	// ProviderDiscord はDiscord OAuth 2.0。
	ProviderDiscord Provider = "discord"
)

// ParseProvider は文字列をProviderに変換する。未対応の値はエラーを返す。
func ParseProvider(s string) (Provider, error) {
	switch Provider(s) {
	case ProviderGoogle, ProviderDiscord:
		return Provider(s), nil
	default:
		return "", fmt.Errorf("unsupported provider: %q", s)
	}
}

// AdminPrincipal はセッションに紐づく認証済み管理者を表す。
// セッションの有効期間中は変更されない。
type AdminPrincipal struct {
	ID          string   `json:"id"`
	Provider    Provider `json:"provider"`
	Email       string   `json:"email"`
	DisplayName string   `json:"displayName"`
	Avatar      string   `json:"avatar,omitempty"`
}

// Key はレート制限やログで管理者を識別するためのキーを返す。
func (p *AdminPrincipal) Key() string {
	return string(p.Provider) + ":" + p.ID
}

// Session は管理者のログインセッションを表す。
// ログイン完了時にのみ作成されるため、Principalは常に非nil。
type Session struct {
	ID        string
	Principal *AdminPrincipal
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired は指定時刻においてセッションが期限切れかどうかを返す。
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
