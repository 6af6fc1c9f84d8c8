package auth

import (
	"context"
	"errors"
	"fmt"

	"humorize/models"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
)

const googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

var googleEndpoint = oauth2.Endpoint{
	AuthURL:   "https://accounts.google.com/o/oauth2/auth",
	TokenURL:  "https://oauth2.googleapis.com/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

var ErrNoSubject = errors.New("identity provider returned no subject")

// IdentityProvider signs users in through a browser redirect
type IdentityProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*models.User, error)
}

type GoogleProvider struct {
	oauth       *oauth2.Config
	userInfoURL string
	client      *resty.Client
}

func NewGoogleProvider(clientID, clientSecret, redirectURL string) *GoogleProvider {
	return &GoogleProvider{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     googleEndpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		userInfoURL: googleUserInfoURL,
		client:      resty.New(),
	}
}

func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

type googleUserInfo struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Exchange trades the authorization code for a token and loads the user behind it
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*models.User, error) {
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}
	info := googleUserInfo{}
	resp, err := p.client.R().
		SetContext(ctx).
		SetAuthToken(token.AccessToken).
		SetResult(&info).
		Get(p.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("userinfo request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("userinfo request failed: %s", resp.Status())
	}
	if info.Sub == "" {
		return nil, ErrNoSubject
	}
	return &models.User{ID: info.Sub, Email: info.Email, Name: info.Name}, nil
}
