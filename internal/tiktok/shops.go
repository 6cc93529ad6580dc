package tiktok

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"storelink/internal/apperr"
)

const ShopsPath = "/authorization/202309/shops"

// Shop is one shop the seller authorized the app for. Cipher identifies the
// shop in later shop-scoped API calls.
type Shop struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Region     string `json:"region"`
	SellerType string `json:"seller_type"`
	Cipher     string `json:"cipher"`
	Code       string `json:"code"`
}

type shopsResponse struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Data      *struct {
		Shops []Shop `json:"shops"`
	} `json:"data"`
}

// Sign computes the Open API request signature: HMAC-SHA256 keyed by the app
// secret over secret + path + sorted query pairs + body + secret. The sign
// and access_token parameters are excluded.
func Sign(appSecret, path string, query url.Values, body []byte) string {
	keys := make([]string, 0, len(query))
	for k := range query {
		if k == "sign" || k == "access_token" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(appSecret)
	b.WriteString(path)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(query.Get(k))
	}
	b.Write(body)
	b.WriteString(appSecret)

	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write([]byte(b.String()))
	return hex.EncodeToString(mac.Sum(nil))
}

// AuthorizedShops lists the shops the access token is authorized for.
func (c *Client) AuthorizedShops(ctx context.Context, accessToken string) ([]Shop, error) {
	if c.AppKey == "" || c.AppSecret == "" {
		return nil, apperr.Internal("list authorized shops", ErrMissingCredentials)
	}
	host := c.APIHost
	if host == "" {
		host = DefaultAPIHost
	}
	q := url.Values{}
	q.Set("app_key", c.AppKey)
	q.Set("timestamp", strconv.FormatInt(c.now().Unix(), 10))
	q.Set("sign", Sign(c.AppSecret, ShopsPath, q, nil))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(host, "/")+ShopsPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, apperr.Internal("build shops request", err)
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set("x-tts-access-token", accessToken)

	const failMsg = "list authorized shops failed"
	raw, status, err := c.send(req)
	if err != nil {
		return nil, apperr.UpstreamExchange(failMsg, "", err)
	}
	var out shopsResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, apperr.UpstreamExchange(failMsg, string(raw), fmt.Errorf("decode response (status %d): %w", status, err))
	}
	if out.Code != 0 || out.Data == nil {
		return nil, apperr.UpstreamExchange(failMsg, string(raw), fmt.Errorf("tiktok error %d: %s", out.Code, out.Message))
	}
	return out.Data.Shops, nil
}
