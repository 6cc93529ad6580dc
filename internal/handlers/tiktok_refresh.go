package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"storelink/internal/apperr"
	"storelink/internal/config"
	"storelink/internal/db"
	"storelink/internal/notify"
)

type TikTokRefreshHandler struct {
	cfg    *config.Config
	deps   Deps
	tiktok TikTokRefresher
}

func NewTikTokRefreshHandler(cfg *config.Config, deps Deps, client TikTokRefresher) *TikTokRefreshHandler {
	return &TikTokRefreshHandler{cfg: cfg, deps: deps, tiktok: client}
}

// Handle refreshes the most recent stored token pair and appends the new
// pair as its own row. The connection is not held across the upstream call.
func (h *TikTokRefreshHandler) Handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	log := h.deps.logger()
	if err := allowMethods(req, http.MethodPost); err != nil {
		return errorResp(log, h.cfg.DebugErrors, err)
	}

	table := h.cfg.Tables.TikTokTokens
	var latest db.TikTokToken
	err := db.WithConn(ctx, h.deps.DB, h.cfg.Database.Timeout, func(ctx context.Context, conn db.Conn) error {
		if err := db.EnsureTable(ctx, conn, db.TikTokTokensTable(table)); err != nil {
			return err
		}
		var err error
		latest, err = db.LatestTikTokToken(ctx, conn, table)
		return err
	})
	if errors.Is(err, db.ErrNotFound) {
		return errorResp(log, h.cfg.DebugErrors, apperr.Validation("no stored tiktok refresh token"))
	}
	if err != nil {
		return errorResp(log, h.cfg.DebugErrors, err)
	}

	refreshToken, err := h.deps.Sealer.Open(latest.RefreshToken)
	if err != nil {
		return errorResp(log, h.cfg.DebugErrors, apperr.Internal("open stored refresh token", err))
	}

	tok, err := h.tiktok.Refresh(ctx, refreshToken)
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

	region := latest.ShopRegion
	if tok.SellerRegion != "" {
		region = tok.SellerRegion
	}
	record := db.TikTokToken{
		TikTokCallback: db.TikTokCallback{
			AppKey:     latest.AppKey,
			ShopRegion: region,
		},
		AccessToken:   access,
		RefreshToken:  refresh,
		AccessExpire:  tok.AccessTokenExpireIn,
		RefreshExpire: tok.RefreshTokenExpireIn,
	}
	err = db.WithConn(ctx, h.deps.DB, h.cfg.Database.Timeout, func(ctx context.Context, conn db.Conn) error {
		return db.InsertTikTokToken(ctx, conn, table, record)
	})
	if err != nil {
		return errorResp(log, h.cfg.DebugErrors, err)
	}

	log.Info("tiktok token refreshed", zap.String("shop_region", region), zap.Int64("access_expire", tok.AccessTokenExpireIn))
	h.deps.Notifier.Notify(ctx, notify.ShopConnected{
		Platform:   "tiktok",
		Event:      "refreshed",
		ShopRegion: region,
		SellerName: tok.SellerName,
	})

	return jsonResp(http.StatusOK, map[string]any{
		"success":        true,
		"shop_region":    region,
		"seller_name":    tok.SellerName,
		"access_expire":  tok.AccessTokenExpireIn,
		"refresh_expire": tok.RefreshTokenExpireIn,
	})
}
