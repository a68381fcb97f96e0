// Package auth はOAuth認証フロー、管理者の許可判定、セッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/nestadmin/internal/model"
	"github.com/hitoshi/nestadmin/internal/repository"
	"github.com/hitoshi/nestadmin/internal/security"
)

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
// 許可判定は全プロバイダーで共通の1か所で行う。
type Service struct {
	providers   map[model.Provider]OAuthProvider
	allowList   *AllowList
	sessionRepo repository.SessionRepository
	sanitizer   security.TextSanitizer
	config      ServiceConfig
	now         func() time.Time
}

// NewService はServiceを生成する。
// providersには資格情報が設定されたプロバイダーのみを渡す。
func NewService(
	providers map[model.Provider]OAuthProvider,
	allowList *AllowList,
	sessionRepo repository.SessionRepository,
	sanitizer security.TextSanitizer,
	config ServiceConfig,
) *Service {
	return &Service{
		providers:   providers,
		allowList:   allowList,
		sessionRepo: sessionRepo,
		sanitizer:   sanitizer,
		config:      config,
		now:         time.Now,
	}
}

// Enabled はプロバイダーが利用可能かどうかを返す。
func (s *Service) Enabled(provider model.Provider) bool {
	_, ok := s.providers[provider]
	return ok
}

// GetLoginURL は指定プロバイダーのOAuth認証URLを生成する。
func (s *Service) GetLoginURL(provider model.Provider, state string) (string, error) {
	p, ok := s.providers[provider]
	if !ok {
		return "", fmt.Errorf("%w: %s", model.ErrProviderNotConfigured, provider)
	}
	return p.GetLoginURL(state), nil
}

// Authenticate は認可コードを交換し、許可リストを満たす場合のみ管理者を返す。
// 許可されない場合はmodel.ErrNotAllowedAdminを返す。
func (s *Service) Authenticate(ctx context.Context, provider model.Provider, code string) (*model.AdminPrincipal, error) {
	p, ok := s.providers[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrProviderNotConfigured, provider)
	}

	userInfo, err := p.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	if !s.allowList.IsAllowed(userInfo.Email) {
		slog.Warn("admin login rejected",
			slog.String("provider", string(provider)),
			slog.String("provider_user_id", userInfo.ProviderUserID),
			slog.String("email", userInfo.Email),
		)
		return nil, fmt.Errorf("%w: %s", model.ErrNotAllowedAdmin, userInfo.Email)
	}

	return &model.AdminPrincipal{
		ID:          userInfo.ProviderUserID,
		Provider:    provider,
		Email:       userInfo.Email,
		DisplayName: s.sanitizer.Sanitize(userInfo.Name),
		Avatar:      userInfo.Avatar,
	}, nil
}

// HandleCallback はOAuthコールバックを処理し、許可された管理者にセッションを発行する。
// 許可されない場合はセッションを作成しない。
func (s *Service) HandleCallback(ctx context.Context, provider model.Provider, code string) (*model.Session, error) {
	principal, err := s.Authenticate(ctx, provider, code)
	if err != nil {
		return nil, err
	}

	session, err := s.createSession(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("admin logged in",
		slog.String("admin", principal.Key()),
		slog.String("email", principal.Email),
	)
	return session, nil
}

// GetCurrentPrincipal はセッションから現在の管理者を取得する。
// セッションIDが空、またはセッションが存在しない・期限切れの場合はnilを返す。
func (s *Service) GetCurrentPrincipal(ctx context.Context, sessionID string) (*model.AdminPrincipal, error) {
	if sessionID == "" {
		return nil, nil
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil || session.Expired(s.now()) {
		return nil, nil
	}
	return session.Principal, nil
}

// Logout はセッションを破棄する。セッションIDが空の場合は何もしない。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("admin logged out")
	return nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, principal *model.AdminPrincipal) (*model.Session, error) {
	sessionID, err := GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := s.now()
	session := &model.Session{
		ID:        sessionID,
		Principal: principal,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// GenerateToken は暗号的に安全な256ビットのランダム値を16進文字列で返す。
// セッションIDとOAuthのstateに使う。
func GenerateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
