package auth

import (
	"context"
	"fmt"

	"github.com/hitoshi/nestadmin/internal/model"
	"golang.org/x/oauth2/endpoints"
)

const defaultGoogleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// GoogleOAuthProvider はGoogle OAuth 2.0による認証を提供する。
type GoogleOAuthProvider struct {
	client *oauthClient
}

// NewGoogleOAuthProvider はGoogleOAuthProviderを生成する。
// スコープにはopenid, email, profileを含む。
func NewGoogleOAuthProvider(config ProviderConfig) *GoogleOAuthProvider {
	return &GoogleOAuthProvider{
		client: newOAuthClient(config, endpoints.Google, defaultGoogleUserInfoURL,
			[]string{"openid", "email", "profile"}),
	}
}

// GetLoginURL はGoogle OAuthの認証URLを生成する。
func (p *GoogleOAuthProvider) GetLoginURL(state string) string {
	return p.client.loginURL(state)
}

// googleUserInfo はGoogleのユーザー情報エンドポイントのレスポンス。
type googleUserInfo struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// ExchangeCode は認可コードをアクセストークンに交換し、ユーザー情報を取得する。
func (p *GoogleOAuthProvider) ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error) {
	var info googleUserInfo
	if err := p.client.fetchUserInfo(ctx, code, &info); err != nil {
		return nil, err
	}
	if info.Sub == "" {
		return nil, fmt.Errorf("empty sub in user info response")
	}

	return &OAuthUserInfo{
		ProviderUserID: info.Sub,
		Email:          info.Email,
		Name:           info.Name,
		Avatar:         info.Picture,
		Provider:       model.ProviderGoogle,
	}, nil
}

// compile-time interface check
var _ OAuthProvider = (*GoogleOAuthProvider)(nil)
