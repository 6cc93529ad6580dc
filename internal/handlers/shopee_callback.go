package handlers

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"storelink/internal/config"
	"storelink/internal/db"
)

type ShopeeCallbackHandler struct {
	cfg  *config.Config
	deps Deps
}

func NewShopeeCallbackHandler(cfg *config.Config, deps Deps) *ShopeeCallbackHandler {
	return &ShopeeCallbackHandler{cfg: cfg, deps: deps}
}

type shopeeCallbackParams struct {
	Code   string `param:"code" validate:"required"`
	ShopID string `param:"shop_id" validate:"required"`
}

// Handle records the authorization code Shopee redirects back with.
func (h *ShopeeCallbackHandler) Handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	log := h.deps.logger()
	if err := allowMethods(req, http.MethodGet, http.MethodPost); err != nil {
		return errorResp(log, h.cfg.DebugErrors, err)
	}
	params, err := requestParams(req)
	if err != nil {
		return errorResp(log, h.cfg.DebugErrors, err)
	}
	p := shopeeCallbackParams{Code: params["code"], ShopID: params["shop_id"]}
	if err := validateParams(p); err != nil {
		return errorResp(log, h.cfg.DebugErrors, err)
	}

	table := h.cfg.Tables.ShopeeCallbacks
	err = db.WithConn(ctx, h.deps.DB, h.cfg.Database.Timeout, func(ctx context.Context, conn db.Conn) error {
		if err := db.EnsureTable(ctx, conn, db.ShopeeCallbacksTable(table)); err != nil {
			return err
		}
		return db.InsertShopeeCallback(ctx, conn, table, db.ShopeeCallback{Code: p.Code, ShopID: p.ShopID})
	})
	if err != nil {
		return errorResp(log, h.cfg.DebugErrors, err)
	}

	log.Info("shopee callback stored", zap.String("shop_id", p.ShopID))
	return callbackDone(h.cfg.Callback.Mode, h.cfg.Callback.ShopeeRedirectURL, map[string]any{
		"message": "callback stored",
		"shop_id": p.ShopID,
	})
}
