package handlers

import (
	"context"

	"go.uber.org/zap"

	"storelink/internal/awsx"
	"storelink/internal/config"
	"storelink/internal/db"
	"storelink/internal/logger"
	"storelink/internal/notify"
	"storelink/internal/security"
	"storelink/internal/shopee"
	"storelink/internal/tiktok"
)

// Deps are the collaborators shared by every handler. Only DB is required.
type Deps struct {
	DB       db.Connector
	Log      *zap.Logger
	Sealer   security.TokenSealer
	Notifier *notify.Notifier
}

func (d Deps) logger() *zap.Logger {
	if d.Log == nil {
		return zap.NewNop()
	}
	return d.Log
}

type TikTokExchanger interface {
	Exchange(ctx context.Context, authCode string) (*tiktok.TokenPayload, error)
}

type TikTokRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (*tiktok.TokenPayload, error)
}

type TikTokShopLister interface {
	AuthorizedShops(ctx context.Context, accessToken string) ([]tiktok.Shop, error)
}

type ShopeeExchanger interface {
	Exchange(ctx context.Context, code, shopID string) (*shopee.Token, error)
}

type ShopeeRefresher interface {
	Refresh(ctx context.Context, shopID, refreshToken string) (*shopee.Token, error)
}

// NewDeps builds the production collaborators from configuration.
func NewDeps(cfg *config.Config, log *zap.Logger, notifier *notify.Notifier) (Deps, error) {
	sealer, err := security.NewTokenSealer(cfg.TokenEncKeyB64)
	if err != nil {
		return Deps{}, err
	}
	if cfg.Database.TLSInsecure {
		log.Warn("DB_TLS_INSECURE is set; database server certificates are not verified")
	}
	return Deps{
		DB: db.PgConnector{
			URL:         cfg.Database.URL,
			TLSInsecure: cfg.Database.TLSInsecure,
			Timeout:     cfg.Database.Timeout,
		},
		Log:      log,
		Sealer:   sealer,
		Notifier: notifier,
	}, nil
}

// Bootstrap loads configuration and builds the logger and shared
// collaborators for a Lambda entry point.
func Bootstrap(ctx context.Context) (*config.Config, Deps, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, Deps{}, err
	}
	log := logger.New(cfg.LogLevel, cfg.Env)

	var notifier *notify.Notifier
	if cfg.AlertsTopicARN != "" {
		client, err := awsx.NewSNSClient(ctx)
		if err != nil {
			return nil, Deps{}, err
		}
		notifier = notify.New(client, cfg.AlertsTopicARN, log)
	}

	deps, err := NewDeps(cfg, log, notifier)
	if err != nil {
		return nil, Deps{}, err
	}
	return cfg, deps, nil
}
