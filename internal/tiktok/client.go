// Package tiktok talks to the TikTok Shop authorization service and Open API.
package tiktok

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"storelink/internal/apperr"
)

const (
	DefaultTokenURL   = "https://auth.tiktok-shops.com/api/v2/token/get"
	DefaultRefreshURL = "https://auth.tiktok-shops.com/api/v2/token/refresh"
	DefaultAPIHost    = "https://open-api.tiktokglobalshop.com"
)

// TokenPayload is the "data" object of a token response.
type TokenPayload struct {
	AccessToken          string   `json:"access_token"`
	RefreshToken         string   `json:"refresh_token"`
	AccessTokenExpireIn  int64    `json:"access_token_expire_in"`
	RefreshTokenExpireIn int64    `json:"refresh_token_expire_in"`
	OpenID               string   `json:"open_id"`
	SellerName           string   `json:"seller_name"`
	SellerRegion         string   `json:"seller_base_region"`
	GrantedScopes        []string `json:"granted_scopes"`
}

type tokenResponse struct {
	Code    int           `json:"code"`
	Message string        `json:"message"`
	Data    *TokenPayload `json:"data"`
}

type Client struct {
	HTTP       *http.Client
	TokenURL   string
	RefreshURL string
	APIHost    string
	AppKey     string
	AppSecret  string
	now        func() time.Time
}

func NewClient(appKey, appSecret, tokenURL, refreshURL string, timeout time.Duration) *Client {
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	if refreshURL == "" {
		refreshURL = DefaultRefreshURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		HTTP:       &http.Client{Timeout: timeout},
		TokenURL:   tokenURL,
		RefreshURL: refreshURL,
		APIHost:    DefaultAPIHost,
		AppKey:     appKey,
		AppSecret:  appSecret,
		now:        time.Now,
	}
}

var ErrMissingCredentials = errors.New("TIKTOK_APP_KEY or TIKTOK_APP_SECRET not set")

// Exchange trades an authorization code for a token pair. It makes exactly
// one request and never retries.
func (c *Client) Exchange(ctx context.Context, authCode string) (*TokenPayload, error) {
	if c.AppKey == "" || c.AppSecret == "" {
		return nil, apperr.Internal("token exchange", ErrMissingCredentials)
	}
	body, _ := json.Marshal(map[string]string{
		"app_key":    c.AppKey,
		"app_secret": c.AppSecret,
		"auth_code":  authCode,
		"grant_type": "authorized_code",
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.TokenURL, bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Internal("build token request", err)
	}
	req.Header.Set("content-type", "application/json")
	return c.do(req, "token exchange failed")
}

// Refresh obtains a new token pair from a refresh token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenPayload, error) {
	if c.AppKey == "" || c.AppSecret == "" {
		return nil, apperr.Internal("token refresh", ErrMissingCredentials)
	}
	u, err := url.Parse(c.RefreshURL)
	if err != nil {
		return nil, apperr.Internal("parse refresh url", err)
	}
	q := u.Query()
	q.Set("app_key", c.AppKey)
	q.Set("app_secret", c.AppSecret)
	q.Set("refresh_token", refreshToken)
	q.Set("grant_type", "refresh_token")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, apperr.Internal("build refresh request", err)
	}
	return c.do(req, "token refresh failed")
}

// do succeeds only when the body carries data.access_token. Every other
// outcome is an upstream exchange error holding the raw body.
func (c *Client) do(req *http.Request, failMsg string) (*TokenPayload, error) {
	raw, status, err := c.send(req)
	if err != nil {
		return nil, apperr.UpstreamExchange(failMsg, "", err)
	}

	var out tokenResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, apperr.UpstreamExchange(failMsg, string(raw), fmt.Errorf("decode response (status %d): %w", status, err))
	}
	if out.Data == nil || out.Data.AccessToken == "" {
		return nil, apperr.UpstreamExchange(failMsg, string(raw), fmt.Errorf("no access_token in response (status %d, code %d)", status, out.Code))
	}
	return out.Data, nil
}

func (c *Client) send(req *http.Request) ([]byte, int, error) {
	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	res, err := httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, res.StatusCode, err
	}
	return raw, res.StatusCode, nil
}
