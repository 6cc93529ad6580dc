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

type ShopeeTokenHandler struct {
	cfg    *config.Config
	deps   Deps
	shopee ShopeeExchanger
}

func NewShopeeTokenHandler(cfg *config.Config, deps Deps, client ShopeeExchanger) *ShopeeTokenHandler {
	return &ShopeeTokenHandler{cfg: cfg, deps: deps, shopee: client}
}

type shopeeTokenParams struct {
	Code   string `param:"code" validate:"required"`
	ShopID string `param:"shop_id" validate:"required,numeric"`
}

// Handle exchanges a Shopee authorization code. Without code and shop_id in
// the request, the most recent stored callback is used.
func (h *ShopeeTokenHandler) Handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	log := h.deps.logger()
	if err := allowMethods(req, http.MethodPost); err != nil {
		return errorResp(log, h.cfg.DebugErrors, err)
	}
	params, err := requestParams(req)
	if err != nil {
		return errorResp(log, h.cfg.DebugErrors, err)
	}
	p := shopeeTokenParams{Code: params["code"], ShopID: params["shop_id"]}

	if p.Code == "" && p.ShopID == "" {
		err := db.WithConn(ctx, h.deps.DB, h.cfg.Database.Timeout, func(ctx context.Context, conn db.Conn) error {
			if err := db.EnsureTable(ctx, conn, db.ShopeeCallbacksTable(h.cfg.Tables.ShopeeCallbacks)); err != nil {
				return err
			}
			cb, err := db.LatestShopeeCallback(ctx, conn, h.cfg.Tables.ShopeeCallbacks)
			p.Code, p.ShopID = cb.Code, cb.ShopID
			return err
		})
		if errors.Is(err, db.ErrNotFound) {
			return errorResp(log, h.cfg.DebugErrors, apperr.Validation("missing code and shop_id and no stored callback"))
		}
		if err != nil {
			return errorResp(log, h.cfg.DebugErrors, err)
		}
	}
	if err := validateParams(p); err != nil {
		return errorResp(log, h.cfg.DebugErrors, err)
	}

	tok, err := h.shopee.Exchange(ctx, p.Code, p.ShopID)
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

	table := h.cfg.Tables.ShopeeTokens
	err = db.WithConn(ctx, h.deps.DB, h.cfg.Database.Timeout, func(ctx context.Context, conn db.Conn) error {
		if err := db.EnsureTable(ctx, conn, db.ShopeeTokensTable(table)); err != nil {
			return err
		}
		return db.InsertShopeeToken(ctx, conn, table, db.ShopeeToken{
			Code:         p.Code,
			ShopID:       p.ShopID,
			AccessToken:  access,
			RefreshToken: refresh,
			ExpireIn:     tok.ExpireIn,
			RequestID:    tok.RequestID,
		})
	})
	if err != nil {
		return errorResp(log, h.cfg.DebugErrors, err)
	}

	log.Info("shopee token stored", zap.String("shop_id", p.ShopID), zap.String("request_id", tok.RequestID))
	h.deps.Notifier.Notify(ctx, notify.ShopConnected{
		Platform: "shopee",
		Event:    "connected",
		ShopID:   p.ShopID,
	})

	return jsonResp(http.StatusOK, map[string]any{
		"success":    true,
		"shop_id":    p.ShopID,
		"expire_in":  tok.ExpireIn,
		"request_id": tok.RequestID,
	})
}
