package handlers

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"storelink/internal/apperr"
	"storelink/internal/config"
	"storelink/internal/db"
	"storelink/internal/notify"
)

type TikTokCallbackHandler struct {
	cfg    *config.Config
	deps   Deps
	tiktok TikTokExchanger
}

func NewTikTokCallbackHandler(cfg *config.Config, deps Deps, client TikTokExchanger) *TikTokCallbackHandler {
	return &TikTokCallbackHandler{cfg: cfg, deps: deps, tiktok: client}
}

type tiktokCallbackParams struct {
	Code       string `param:"code" validate:"required"`
	AppKey     string `param:"app_key"`
	ShopRegion string `param:"shop_region"`
	State      string `param:"state"`
}

// Handle exchanges the authorization code and stores the resulting token
// pair. Nothing is written unless the exchange returned an access token.
func (h *TikTokCallbackHandler) Handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	log := h.deps.logger()
	if err := allowMethods(req, http.MethodGet, http.MethodPost); err != nil {
		return errorResp(log, h.cfg.DebugErrors, err)
	}
	params, err := requestParams(req)
	if err != nil {
		return errorResp(log, h.cfg.DebugErrors, err)
	}
	p := tiktokCallbackParams{
		Code:       params["code"],
		AppKey:     params["app_key"],
		ShopRegion: params["shop_region"],
		State:      params["state"],
	}
	if err := validateParams(p); err != nil {
		return errorResp(log, h.cfg.DebugErrors, err)
	}
	if p.AppKey == "" {
		p.AppKey = h.cfg.TikTok.AppKey
	}

	tok, err := h.tiktok.Exchange(ctx, p.Code)
	if err != nil {
		return errorResp(log, h.cfg.DebugErrors, err)
	}

	access, err := h.deps.Sealer.Seal(tok.AccessToken)
	if err != nil {
		return errorResp(log, h.cfg.DebugErrors, apperr.Internal("seal access token", err))
	}
	refresh, err := h.deps.Sealer.Seal(tok.RefreshToken)
	if err != nil {
		return errorResp(log, h.cfg.DebugErrors, apperr.Internal("seal refresh token", err))
	}

	record := db.TikTokToken{
		TikTokCallback: db.TikTokCallback{
			Code:       p.Code,
			AppKey:     p.AppKey,
			ShopRegion: p.ShopRegion,
			State:      p.State,
		},
		AccessToken:   access,
		RefreshToken:  refresh,
		AccessExpire:  tok.AccessTokenExpireIn,
		RefreshExpire: tok.RefreshTokenExpireIn,
	}

	table := h.cfg.Tables.TikTokTokens
	err = db.WithConn(ctx, h.deps.DB, h.cfg.Database.Timeout, func(ctx context.Context, conn db.Conn) error {
		if err := db.EnsureTable(ctx, conn, db.TikTokTokensTable(table)); err != nil {
			return err
		}
		return db.InsertTikTokToken(ctx, conn, table, record)
	})
	if err != nil {
		return errorResp(log, h.cfg.DebugErrors, err)
	}

	log.Info("tiktok token stored",
		zap.String("shop_region", p.ShopRegion),
		zap.String("seller_name", tok.SellerName),
		zap.Int64("access_expire", tok.AccessTokenExpireIn))
	h.deps.Notifier.Notify(ctx, notify.ShopConnected{
		Platform:   "tiktok",
		Event:      "connected",
		ShopRegion: p.ShopRegion,
		SellerName: tok.SellerName,
	})

	return callbackDone(h.cfg.Callback.Mode, h.cfg.Callback.TikTokRedirectURL, map[string]any{
		"message":        "token stored",
		"shop_region":    p.ShopRegion,
		"seller_name":    tok.SellerName,
		"access_expire":  tok.AccessTokenExpireIn,
		"refresh_expire": tok.RefreshTokenExpireIn,
	})
}
