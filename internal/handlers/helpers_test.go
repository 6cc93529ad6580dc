package handlers

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storelink/internal/config"
	"storelink/internal/db/dbtest"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:             "test",
		LogLevel:        "debug",
		ExchangeTimeout: time.Second,
		Database:        config.DatabaseConfig{Timeout: 2 * time.Second},
		TikTok:          config.TikTokConfig{AppKey: "app-key", AppSecret: "app-secret"},
		Shopee:          config.ShopeeConfig{PartnerID: 1001, PartnerKey: "partner-key"},
		Callback: config.CallbackConfig{
			Mode:              config.ResponseRedirect,
			ShopeeRedirectURL: "/",
			TikTokRedirectURL: "/dashboard.html",
		},
		Session: config.SessionConfig{
			JWTSecret:     "test-secret",
			TTL:           2 * time.Hour,
			LoginRedirect: "/dashboard.html",
			CookieName:    "admin_session",
		},
		Tables: config.TablesConfig{
			ShopeeCallbacks: "shopee_callbacks",
			ShopeeTokens:    "shopee_tokens",
			TikTokTokens:    "tiktok_tokens",
			TikTokShops:     "tiktok_shops",
			Products:        "shopee_products",
			AdminUsers:      "admin_users",
		},
	}
}

func testDeps(fake *dbtest.Fake) Deps {
	return Deps{DB: fake, Log: zap.NewNop()}
}

func request(method, path string, query map[string]string) events.APIGatewayV2HTTPRequest {
	req := events.APIGatewayV2HTTPRequest{
		RawPath:               path,
		QueryStringParameters: query,
		Headers:               map[string]string{},
	}
	req.RequestContext.HTTP.Method = method
	req.RequestContext.HTTP.Path = path
	return req
}

func jsonRequest(method, path string, body any) events.APIGatewayV2HTTPRequest {
	req := request(method, path, nil)
	b, _ := json.Marshal(body)
	req.Body = string(b)
	req.Headers["content-type"] = "application/json"
	return req
}

func decodeBody(t *testing.T, resp events.APIGatewayV2HTTPResponse) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &m), resp.Body)
	return m
}
