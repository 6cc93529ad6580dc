package shopee

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"

	"storelink/internal/apperr"
)

const (
	DefaultHost      = "https://partner.shopeemobile.com"
	TokenGetPath     = "/api/v2/auth/token/get"
	AccessTokenPath  = "/api/v2/auth/access_token/get"
	ItemListPath     = "/api/v2/product/get_item_list"
	ItemBaseInfoPath = "/api/v2/product/get_item_base_info"
)

type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpireIn     int64  `json:"expire_in"`
	RequestID    string `json:"request_id"`
	Error        string `json:"error"`
	Message      string `json:"message"`
}

type Client struct {
	HTTP       *http.Client
	Host       string
	PartnerID  int64
	PartnerKey string
	now        func() time.Time
}

func NewClient(partnerID int64, partnerKey, host string, timeout time.Duration) *Client {
	if host == "" {
		host = DefaultHost
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		HTTP:       &http.Client{Timeout: timeout},
		Host:       strings.TrimRight(host, "/"),
		PartnerID:  partnerID,
		PartnerKey: partnerKey,
		now:        time.Now,
	}
}

var ErrMissingCredentials = errors.New("SHOPEE_PARTNER_ID or SHOPEE_PARTNER_KEY not set")

// ParseShopID accepts a positive decimal shop id.
func ParseShopID(shopID string) (int64, error) {
	sid, err := cast.ToInt64E(strings.TrimLeft(strings.TrimSpace(shopID), "0"))
	if err != nil || sid <= 0 {
		return 0, apperr.Validation("shop_id must be a positive integer")
	}
	return sid, nil
}

// Exchange trades a shop authorization code for a token pair. Success
// requires a top-level access_token and an empty error field.
func (c *Client) Exchange(ctx context.Context, code, shopID string) (*Token, error) {
	if c.PartnerID == 0 || c.PartnerKey == "" {
		return nil, apperr.Internal("shopee token exchange", ErrMissingCredentials)
	}
	sid, err := ParseShopID(shopID)
	if err != nil {
		return nil, err
	}
	return c.token(ctx, TokenGetPath, "shopee token exchange failed", map[string]any{
		"code":       code,
		"shop_id":    sid,
		"partner_id": c.PartnerID,
	})
}

// Refresh trades a shop refresh token for a new token pair.
func (c *Client) Refresh(ctx context.Context, shopID, refreshToken string) (*Token, error) {
	if c.PartnerID == 0 || c.PartnerKey == "" {
		return nil, apperr.Internal("shopee token refresh", ErrMissingCredentials)
	}
	sid, err := ParseShopID(shopID)
	if err != nil {
		return nil, err
	}
	return c.token(ctx, AccessTokenPath, "shopee token refresh failed", map[string]any{
		"refresh_token": refreshToken,
		"shop_id":       sid,
		"partner_id":    c.PartnerID,
	})
}

func (c *Client) token(ctx context.Context, path, failMsg string, payload map[string]any) (*Token, error) {
	ts := c.now().Unix()
	q := url.Values{}
	q.Set("partner_id", strconv.FormatInt(c.PartnerID, 10))
	q.Set("timestamp", strconv.FormatInt(ts, 10))
	q.Set("sign", Sign(c.PartnerID, c.PartnerKey, path, ts))

	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Host+path+"?"+q.Encode(), bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Internal("build shopee token request", err)
	}
	req.Header.Set("content-type", "application/json")

	raw, status, err := c.send(req)
	if err != nil {
		return nil, apperr.UpstreamExchange(failMsg, "", err)
	}

	var tok Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, apperr.UpstreamExchange(failMsg, string(raw), fmt.Errorf("decode response (status %d): %w", status, err))
	}
	if tok.Error != "" || tok.AccessToken == "" {
		return nil, apperr.UpstreamExchange(failMsg, string(raw), fmt.Errorf("shopee error %q: %s", tok.Error, tok.Message))
	}
	return &tok, nil
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

	raw, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return nil, res.StatusCode, err
	}
	return raw, res.StatusCode, nil
}
