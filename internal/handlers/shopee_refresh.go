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

type ShopeeRefreshHandler struct {
	cfg    *config.Config
	deps   Deps
	shopee ShopeeRefresher
}

func NewShopeeRefreshHandler(cfg *config.Config, deps Deps, client ShopeeRefresher) *ShopeeRefreshHandler {
	return &ShopeeRefreshHandler{cfg: cfg, deps: deps, shopee: client}
}

type shopeeRefreshParams struct {
	ShopID string `param:"shop_id" validate:"omitempty,numeric"`
}

// Handle refreshes the newest stored Shopee token pair, optionally for one
// shop_id, and appends the new pair as its own row.
func (h *ShopeeRefreshHandler) Handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	log := h.deps.logger()
	if err := allowMethods(req, http.MethodPost); err != nil {
		return errorResp(log, h.cfg.DebugErrors, err)
	}
	params, err := requestParams(req)
	if err != nil {
		return errorResp(log, h.cfg.DebugErrors, err)
	}
	p := shopeeRefreshParams{ShopID: params["shop_id"]}
	if err := validateParams(p); err != nil {
		return errorResp(log, h.cfg.DebugErrors, err)
	}

	table := h.cfg.Tables.ShopeeTokens
	var latest db.ShopeeToken
	err = db.WithConn(ctx, h.deps.DB, h.cfg.Database.Timeout, func(ctx context.Context, conn db.Conn) error {
		if err := db.EnsureTable(ctx, conn, db.ShopeeTokensTable(table)); err != nil {
			return err
		}
		var err error
		latest, err = db.LatestShopeeToken(ctx, conn, table, p.ShopID)
		return err
	})
	if errors.Is(err, db.ErrNotFound) {
		return errorResp(log, h.cfg.DebugErrors, apperr.Validation("no stored shopee refresh token"))
	}
	if err != nil {
		return errorResp(log, h.cfg.DebugErrors, err)
	}

	refreshToken, err := h.deps.Sealer.Open(latest.RefreshToken)
	if err != nil {
		return errorResp(log, h.cfg.DebugErrors, apperr.Internal("open stored refresh token", err))
	}

	tok, err := h.shopee.Refresh(ctx, latest.ShopID, refreshToken)
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

	err = db.WithConn(ctx, h.deps.DB, h.cfg.Database.Timeout, func(ctx context.Context, conn db.Conn) error {
		return db.InsertShopeeToken(ctx, conn, table, db.ShopeeToken{
			ShopID:       latest.ShopID,
			AccessToken:  access,
			RefreshToken: refresh,
			ExpireIn:     tok.ExpireIn,
			RequestID:    tok.RequestID,
		})
	})
	if err != nil {
		return errorResp(log, h.cfg.DebugErrors, err)
	}

	log.Info("shopee token refreshed", zap.String("shop_id", latest.ShopID), zap.String("request_id", tok.RequestID))
	h.deps.Notifier.Notify(ctx, notify.ShopConnected{
		Platform: "shopee",
		Event:    "refreshed",
		ShopID:   latest.ShopID,
	})

	return jsonResp(http.StatusOK, map[string]any{
		"success":    true,
		"shop_id":    latest.ShopID,
		"expire_in":  tok.ExpireIn,
		"request_id": tok.RequestID,
	})
}
