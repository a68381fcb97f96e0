package auth

import (
	"context"
	"fmt"

	"github.com/hitoshi/nestadmin/internal/model"
	"golang.org/x/oauth2/endpoints"
)

const (
	defaultDiscordUserInfoURL = "https://discord.com/api/users/@me"
	discordAvatarURLFormat    = "https://cdn.discordapp.com/avatars/%s/%s.png"
)

// DiscordOAuthProvider はDiscord OAuth 2.0による認証を提供する。
type DiscordOAuthProvider struct {
	client *oauthClient
}

// NewDiscordOAuthProvider はDiscordOAuthProviderを生成する。
// スコープにはidentify, emailを含む。
func NewDiscordOAuthProvider(config ProviderConfig) *DiscordOAuthProvider {
	return &DiscordOAuthProvider{
		client: newOAuthClient(config, endpoints.Discord, defaultDiscordUserInfoURL,
			[]string{"identify", "email"}),
	}
}

// GetLoginURL はDiscord OAuthの認証URLを生成する。
func (p *DiscordOAuthProvider) GetLoginURL(state string) string {
	return p.client.loginURL(state)
}

// discordUser はDiscordの/users/@meのレスポンス。
type discordUser struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	Email      string `json:"email"`
	Avatar     string `json:"avatar"`
}

// ExchangeCode は認可コードをアクセストークンに交換し、ユーザー情報を取得する。
// 表示名はglobal_nameを優先し、未設定の場合はusernameを使う。
func (p *DiscordOAuthProvider) ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error) {
	var user discordUser
	if err := p.client.fetchUserInfo(ctx, code, &user); err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, fmt.Errorf("empty id in user info response")
	}

	name := user.GlobalName
	if name == "" {
		name = user.Username
	}

	return &OAuthUserInfo{
		ProviderUserID: user.ID,
		Email:          user.Email,
		Name:           name,
		Avatar:         discordAvatarURL(user.ID, user.Avatar),
		Provider:       model.ProviderDiscord,
	}, nil
}

func discordAvatarURL(userID, avatar string) string {
	if avatar == "" {
		return ""
	}
	return fmt.Sprintf(discordAvatarURLFormat, userID, avatar)
}

// compile-time interface check
var _ OAuthProvider = (*DiscordOAuthProvider)(nil)
