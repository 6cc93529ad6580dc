package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"storelink/internal/apperr"
	"storelink/internal/config"
	"storelink/internal/db"
	"storelink/internal/security"
)

type LoginHandler struct {
	cfg      *config.Config
	deps     Deps
	sessions *security.SessionIssuer
	verifier *security.PasswordVerifier
}

func NewLoginHandler(cfg *config.Config, deps Deps, sessions *security.SessionIssuer) (*LoginHandler, error) {
	verifier, err := security.NewPasswordVerifier()
	if err != nil {
		return nil, err
	}
	return &LoginHandler{cfg: cfg, deps: deps, sessions: sessions, verifier: verifier}, nil
}

type loginParams struct {
	Username string `param:"username" validate:"required,max=128"`
	Password string `param:"password" validate:"required,max=256"`
}

// Handle reads credentials from the request body only; query string values
// are ignored so passwords never end up in access logs.
func (h *LoginHandler) Handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	log := h.deps.logger()
	if err := allowMethods(req, http.MethodPost); err != nil {
		return errorResp(log, h.cfg.DebugErrors, err)
	}
	params, err := bodyParams(req)
	if err != nil {
		return errorResp(log, h.cfg.DebugErrors, err)
	}
	p := loginParams{Username: params["username"], Password: params["password"]}
	if err := validateParams(p); err != nil {
		return errorResp(log, h.cfg.DebugErrors, err)
	}

	var admin db.AdminCredential
	err = db.WithConn(ctx, h.deps.DB, h.cfg.Database.Timeout, func(ctx context.Context, conn db.Conn) error {
		var err error
		admin, err = db.FindAdmin(ctx, conn, h.cfg.Tables.AdminUsers, p.Username)
		return err
	})
	switch {
	case errors.Is(err, db.ErrNotFound):
		return errorResp(log, false, apperr.Authentication(h.verifier.CheckUnknown(p.Password)))
	case err != nil:
		return errorResp(log, h.cfg.DebugErrors, err)
	}

	if err := h.verifier.Check(admin.PasswordHash, p.Password); err != nil {
		return errorResp(log, false, apperr.Authentication(err))
	}

	token, exp, err := h.sessions.Issue(admin.ID, admin.Username)
	if err != nil {
		return errorResp(log, h.cfg.DebugErrors, apperr.Internal("issue session", err))
	}

	cookie := &http.Cookie{
		Name:     h.cfg.Session.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		MaxAge:   int(time.Until(exp).Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}

	log.Info("admin login", zap.String("username", admin.Username))
	resp, _ := jsonResp(http.StatusOK, map[string]any{
		"success":    true,
		"token":      token,
		"expires_at": exp.Unix(),
		"redirect":   h.cfg.Session.LoginRedirect,
	})
	resp.Cookies = []string{cookie.String()}
	return resp, nil
}
