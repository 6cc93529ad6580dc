package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"storelink/internal/config"
	"storelink/internal/db"
)

type HealthHandler struct {
	cfg  *config.Config
	deps Deps
}

func NewHealthHandler(cfg *config.Config, deps Deps) *HealthHandler {
	return &HealthHandler{cfg: cfg, deps: deps}
}

// Handle reports whether the database answers SELECT NOW().
func (h *HealthHandler) Handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	var now time.Time
	err := db.WithConn(ctx, h.deps.DB, h.cfg.Database.Timeout, func(ctx context.Context, conn db.Conn) error {
		var err error
		now, err = db.Now(ctx, conn)
		return err
	})
	if err != nil {
		return errorResp(h.deps.logger(), h.cfg.DebugErrors, err)
	}
	return jsonResp(http.StatusOK, map[string]any{
		"success": true,
		"time":    now.UTC().Format(time.RFC3339),
	})
}
