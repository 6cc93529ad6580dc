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
	"storelink/internal/tiktok"
)

type TikTokShopsHandler struct {
	cfg    *config.Config
	deps   Deps
	tiktok TikTokShopLister
}

func NewTikTokShopsHandler(cfg *config.Config, deps Deps, client TikTokShopLister) *TikTokShopsHandler {
	return &TikTokShopsHandler{cfg: cfg, deps: deps, tiktok: client}
}

// Handle lists the shops the newest stored TikTok token is authorized for
// and upserts them by shop id.
func (h *TikTokShopsHandler) Handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	log := h.deps.logger()
	if err := allowMethods(req, http.MethodGet, http.MethodPost); err != nil {
		return errorResp(log, h.cfg.DebugErrors, err)
	}

	var latest db.TikTokToken
	err := db.WithConn(ctx, h.deps.DB, h.cfg.Database.Timeout, func(ctx context.Context, conn db.Conn) error {
		if err := db.EnsureTable(ctx, conn, db.TikTokTokensTable(h.cfg.Tables.TikTokTokens)); err != nil {
			return err
		}
		var err error
		latest, err = db.LatestTikTokToken(ctx, conn, h.cfg.Tables.TikTokTokens)
		return err
	})
	if errors.Is(err, db.ErrNotFound) {
		return errorResp(log, h.cfg.DebugErrors, apperr.Validation("no stored tiktok token"))
	}
	if err != nil {
		return errorResp(log, h.cfg.DebugErrors, err)
	}

	accessToken, err := h.deps.Sealer.Open(latest.AccessToken)
	if err != nil {
		return errorResp(log, h.cfg.DebugErrors, apperr.Internal("open stored access token", err))
	}

	shops, err := h.tiktok.AuthorizedShops(ctx, accessToken)
	if err != nil {
		return errorResp(log, h.cfg.DebugErrors, err)
	}
	if len(shops) == 0 {
		return errorResp(log, h.cfg.DebugErrors, apperr.Validation("no authorized tiktok shops"))
	}

	table := h.cfg.Tables.TikTokShops
	err = db.WithConn(ctx, h.deps.DB, h.cfg.Database.Timeout, func(ctx context.Context, conn db.Conn) error {
		if err := db.EnsureTable(ctx, conn, db.TikTokShopsTable(table)); err != nil {
			return err
		}
		for _, s := range shops {
			if err := db.UpsertTikTokShop(ctx, conn, table, shopRecord(s)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errorResp(log, h.cfg.DebugErrors, err)
	}

	log.Info("tiktok shops stored", zap.Int("shops", len(shops)))
	return jsonResp(http.StatusOK, map[string]any{
		"success": true,
		"count":   len(shops),
		"shops":   shops,
	})
}

func shopRecord(s tiktok.Shop) db.TikTokShop {
	return db.TikTokShop{
		ShopID:     s.ID,
		Code:       s.Code,
		Name:       s.Name,
		Region:     s.Region,
		SellerType: s.SellerType,
		Cipher:     s.Cipher,
	}
}
