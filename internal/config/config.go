package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/ilyakaznacheev/cleanenv"

	"storelink/internal/awsx"
)

type ResponseMode string

const (
	ResponseRedirect ResponseMode = "redirect"
	ResponseJSON     ResponseMode = "json"
)

type Config struct {
	Env         string `env:"APP_ENV" env-default:"development"`
	LogLevel    string `env:"LOG_LEVEL" env-default:"info"`
	DebugErrors bool   `env:"DEBUG_ERRORS" env-default:"false"`

	// Bounds each call to a marketplace token endpoint.
	ExchangeTimeout time.Duration `env:"TOKEN_EXCHANGE_TIMEOUT" env-default:"10s"`

	Database DatabaseConfig
	TikTok   TikTokConfig
	Shopee   ShopeeConfig
	Callback CallbackConfig
	Session  SessionConfig
	Tables   TablesConfig
	Catalog  CatalogConfig

	// Optional. When set, stored marketplace tokens are sealed with AES-GCM.
	TokenEncKeyB64 string `env:"TOKEN_ENC_KEY_B64"`
	// Optional. When set, a message is published after a shop is connected.
	AlertsTopicARN string `env:"ALERTS_TOPIC_ARN"`
}

type DatabaseConfig struct {
	URL string `env:"DATABASE_URL"`
	// TLSInsecure skips server certificate verification. It exists for hosted
	// databases with self-signed chains and should stay off.
	TLSInsecure bool          `env:"DB_TLS_INSECURE" env-default:"false"`
	Timeout     time.Duration `env:"DB_TIMEOUT" env-default:"8s"`
}

type TikTokConfig struct {
	AppKey     string `env:"TIKTOK_APP_KEY"`
	AppSecret  string `env:"TIKTOK_APP_SECRET"`
	TokenURL   string `env:"TIKTOK_TOKEN_URL" env-default:"https://auth.tiktok-shops.com/api/v2/token/get"`
	RefreshURL string `env:"TIKTOK_REFRESH_URL" env-default:"https://auth.tiktok-shops.com/api/v2/token/refresh"`
	APIHost    string `env:"TIKTOK_API_HOST" env-default:"https://open-api.tiktokglobalshop.com"`
}

type ShopeeConfig struct {
	PartnerID  int64  `env:"SHOPEE_PARTNER_ID"`
	PartnerKey string `env:"SHOPEE_PARTNER_KEY"`
	Host       string `env:"SHOPEE_HOST" env-default:"https://partner.shopeemobile.com"`
}

type CallbackConfig struct {
	Mode              ResponseMode `env:"CALLBACK_RESPONSE_MODE" env-default:"redirect"`
	ShopeeRedirectURL string       `env:"SHOPEE_REDIRECT_URL" env-default:"/"`
	TikTokRedirectURL string       `env:"TIKTOK_REDIRECT_URL" env-default:"/dashboard.html"`
}

type SessionConfig struct {
	JWTSecret     string        `env:"JWT_SECRET"`
	TTL           time.Duration `env:"SESSION_TTL" env-default:"2h"`
	LoginRedirect string        `env:"LOGIN_REDIRECT" env-default:"/dashboard.html"`
	CookieName    string        `env:"SESSION_COOKIE" env-default:"admin_session"`
}

type TablesConfig struct {
	ShopeeCallbacks string `env:"SHOPEE_CALLBACKS_TABLE" env-default:"shopee_callbacks"`
	ShopeeTokens    string `env:"SHOPEE_TOKENS_TABLE" env-default:"shopee_tokens"`
	TikTokTokens    string `env:"TIKTOK_TOKENS_TABLE" env-default:"tiktok_tokens"`
	TikTokShops     string `env:"TIKTOK_SHOPS_TABLE" env-default:"tiktok_shops"`
	Products        string `env:"PRODUCTS_TABLE" env-default:"shopee_products"`
	AdminUsers      string `env:"ADMIN_USERS_TABLE" env-default:"admin_users"`
}

type CatalogConfig struct {
	// Local path, s3://bucket/key, or shopee:[shop_id] for the live API.
	Source string `env:"CATALOG_SOURCE" env-default:"items.json"`
	// Bounds the whole import, which shares one connection.
	Timeout time.Duration `env:"CATALOG_TIMEOUT" env-default:"5m"`
}

// SSMAPI is the subset of the SSM client used to resolve secrets.
type SSMAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

const ssmPrefix = "ssm:"

// Load reads the environment and resolves any "ssm:/name" secret references.
// An SSM client is only created when at least one reference is present.
func Load(ctx context.Context) (*Config, error) {
	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}
	if !cfg.hasSSMRefs() {
		return cfg, nil
	}
	client, err := awsx.NewSSMClient(ctx)
	if err != nil {
		return nil, err
	}
	if err := cfg.ResolveSecrets(ctx, client); err != nil {
		return nil, err
	}
	return cfg, nil
}

func FromEnv() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	switch cfg.Callback.Mode {
	case ResponseRedirect, ResponseJSON:
	default:
		return nil, fmt.Errorf("CALLBACK_RESPONSE_MODE must be %q or %q, got %q", ResponseRedirect, ResponseJSON, cfg.Callback.Mode)
	}
	return &cfg, nil
}

func (c *Config) secretFields() []*string {
	return []*string{
		&c.Database.URL,
		&c.TikTok.AppKey,
		&c.TikTok.AppSecret,
		&c.Shopee.PartnerKey,
		&c.Session.JWTSecret,
		&c.TokenEncKeyB64,
	}
}

func (c *Config) hasSSMRefs() bool {
	for _, f := range c.secretFields() {
		if strings.HasPrefix(*f, ssmPrefix) {
			return true
		}
	}
	return false
}

// ResolveSecrets replaces every "ssm:/name" value with the decrypted parameter.
func (c *Config) ResolveSecrets(ctx context.Context, client SSMAPI) error {
	for _, f := range c.secretFields() {
		if !strings.HasPrefix(*f, ssmPrefix) {
			continue
		}
		name := strings.TrimPrefix(*f, ssmPrefix)
		out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
			Name:           aws.String(name),
			WithDecryption: aws.Bool(true),
		})
		if err != nil {
			return fmt.Errorf("resolve ssm parameter %s: %w", name, err)
		}
		if out.Parameter == nil {
			return fmt.Errorf("ssm parameter %s has no value", name)
		}
		*f = aws.ToString(out.Parameter.Value)
	}
	return nil
}
