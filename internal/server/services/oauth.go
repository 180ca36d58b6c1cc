package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dmitrijs2005/beyond/internal/common"
	sc "github.com/dmitrijs2005/beyond/internal/server/config"
	"github.com/dmitrijs2005/beyond/internal/server/models"
)

// Provider describes one OAuth2 account-linking integration. Identity maps
// the provider's account-info payload to a stable uid and display name.
type Provider struct {
	FormURL     string
	ExchangeURL string
	InfoURL     string
	Params      map[string]string
	Identity    func(info map[string]any) (uid, displayName string, err error)
}

func defaultProviders() map[string]Provider {
	return map[string]Provider{
		"dropbox": {
			FormURL:     "https://www.dropbox.com/1/oauth2/authorize",
			ExchangeURL: "https://api.dropbox.com/1/oauth2/token",
			InfoURL:     "https://api.dropbox.com/1/account/info",
			Identity: func(info map[string]any) (string, string, error) {
				uid, ok := info["uid"]
				if !ok {
					return "", "", fmt.Errorf("dropbox info has no uid")
				}
				name, _ := info["display_name"].(string)
				return fmt.Sprintf("%v", uid), name, nil
			},
		},
		"google": {
			FormURL:     "https://accounts.google.com/o/oauth2/auth",
			ExchangeURL: "https://www.googleapis.com/oauth2/v3/token",
			InfoURL:     "https://www.googleapis.com/drive/v2/about",
			Params: map[string]string{
				"scope":           "https://www.googleapis.com/auth/drive.file",
				"access_type":     "offline",
				"approval_prompt": "force",
			},
			Identity: func(info map[string]any) (string, string, error) {
				user, ok := info["user"].(map[string]any)
				if !ok {
					return "", "", fmt.Errorf("google info has no user")
				}
				email, ok := user["emailAddress"].(string)
				if !ok {
					return "", "", fmt.Errorf("google info has no emailAddress")
				}
				name, _ := info["name"].(string)
				return email, name, nil
			},
		},
	}
}

// OAuthService drives third-party account linking: building the provider
// authorization redirect, exchanging the callback code for tokens, and
// refreshing expired google access tokens. The provider table is per
// instance so tests can point it at local servers.
type OAuthService struct {
	users     *UserService
	config    *sc.Config
	providers map[string]Provider
	client    *http.Client
}

func NewOAuthService(users *UserService, cfg *sc.Config) *OAuthService {
	return &OAuthService{
		users:     users,
		config:    cfg,
		providers: defaultProviders(),
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *OAuthService) appCredentials(provider string) (key, secret string) {
	switch provider {
	case "dropbox":
		return s.config.DropboxAppKey, s.config.DropboxAppSecret
	case "google":
		return s.config.GoogleAppKey, s.config.GoogleAppSecret
	}
	return "", ""
}

// Known reports whether provider is in the table.
func (s *OAuthService) Known(provider string) bool {
	_, ok := s.providers[provider]
	return ok
}

// AuthorizeURL builds the provider's consent form URL for linking an
// account to username. host is the externally visible base URL of this
// server; the username rides in the state parameter.
func (s *OAuthService) AuthorizeURL(provider, host, username string) (string, error) {
	p, ok := s.providers[provider]
	if !ok {
		return "", common.ErrorNotFound
	}
	appKey, _ := s.appCredentials(provider)

	params := url.Values{}
	params.Set("client_id", appKey)
	params.Set("response_type", "code")
	params.Set("redirect_uri", fmt.Sprintf("%s/oauth/%s", host, provider))
	params.Set("state", username)
	for k, v := range p.Params {
		params.Set(k, v)
	}
	return p.FormURL + "?" + params.Encode(), nil
}

// Exchange trades the callback authorization code for tokens, fetches the
// provider's account info, and links the credential to the user named in
// state. It returns the stored credential.
func (s *OAuthService) Exchange(ctx context.Context, provider, host, code, username string) (*models.Credential, error) {
	p, ok := s.providers[provider]
	if !ok {
		return nil, common.ErrorNotFound
	}
	appKey, appSecret := s.appCredentials(provider)

	query := url.Values{}
	query.Set("code", code)
	query.Set("grant_type", "authorization_code")
	query.Set("client_id", appKey)
	query.Set("client_secret", appSecret)
	query.Set("redirect_uri", fmt.Sprintf("%s/oauth/%s", host, provider))

	tokens, err := s.postForTokens(ctx, p.ExchangeURL, query)
	if err != nil {
		return nil, err
	}
	accessToken, ok := tokens["access_token"].(string)
	if !ok {
		return nil, fmt.Errorf("%s token exchange returned no access_token", provider)
	}
	refreshToken, _ := tokens["refresh_token"].(string)

	info, err := s.getJSON(ctx, p.InfoURL+"?access_token="+url.QueryEscape(accessToken))
	if err != nil {
		return nil, err
	}
	uid, displayName, err := p.Identity(info)
	if err != nil {
		return nil, err
	}

	cred := models.Credential{
		UID:          uid,
		DisplayName:  displayName,
		Token:        accessToken,
		RefreshToken: refreshToken,
	}
	if err := s.users.SetCredential(ctx, username, provider, cred); err != nil {
		return nil, err
	}
	return &cred, nil
}

// RefreshGoogle rotates the access token of the google account holding
// refreshToken and stores it. Returns the new access token, or
// common.ErrorNotFound when no linked account carries that refresh token.
func (s *OAuthService) RefreshGoogle(ctx context.Context, username, refreshToken string) (string, error) {
	user, err := s.users.Get(ctx, username)
	if err != nil {
		return "", err
	}

	for _, account := range user.GoogleAccounts {
		if account.RefreshToken != refreshToken {
			continue
		}
		appKey, appSecret := s.appCredentials("google")
		query := url.Values{}
		query.Set("client_id", appKey)
		query.Set("client_secret", appSecret)
		query.Set("refresh_token", refreshToken)
		query.Set("grant_type", "refresh_token")

		tokens, err := s.postForTokens(ctx, s.providers["google"].ExchangeURL, query)
		if err != nil {
			return "", err
		}
		token, ok := tokens["access_token"].(string)
		if !ok {
			return "", fmt.Errorf("google refresh returned no access_token")
		}

		account.Token = token
		if err := s.users.SetCredential(ctx, username, "google", account); err != nil {
			return "", err
		}
		return token, nil
	}
	return "", common.ErrorNotFound
}

func (s *OAuthService) postForTokens(ctx context.Context, endpoint string, query url.Values) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: token endpoint returned %d: %s", common.ErrorUnavailable, resp.StatusCode, body)
	}
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *OAuthService) getJSON(ctx context.Context, endpoint string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: info endpoint returned %d: %s", common.ErrorUnavailable, resp.StatusCode, body)
	}
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
