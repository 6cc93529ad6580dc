// Command local serves every function on one gin router for development.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"storelink/internal/config"
	"storelink/internal/handlers"
	"storelink/internal/security"
	"storelink/internal/shopee"
	"storelink/internal/tiktok"
)

func newRouter(cfg *config.Config, deps handlers.Deps, sessions *security.SessionIssuer) (*gin.Engine, error) {
	router := gin.New()
	router.Use(gin.Recovery())

	tt := tiktok.NewClient(cfg.TikTok.AppKey, cfg.TikTok.AppSecret, cfg.TikTok.TokenURL, cfg.TikTok.RefreshURL, cfg.ExchangeTimeout)
	tt.APIHost = cfg.TikTok.APIHost
	sp := shopee.NewClient(cfg.Shopee.PartnerID, cfg.Shopee.PartnerKey, cfg.Shopee.Host, cfg.ExchangeTimeout)

	// Handlers enforce their own methods so 405s match the deployed functions.
	router.Any("/shopee/callback", adapt(handlers.NewShopeeCallbackHandler(cfg, deps).Handle))
	router.Any("/shopee/token", adapt(handlers.NewShopeeTokenHandler(cfg, deps, sp).Handle))
	router.Any("/shopee/refresh", adapt(handlers.NewShopeeRefreshHandler(cfg, deps, sp).Handle))
	router.Any("/tiktok/callback", adapt(handlers.NewTikTokCallbackHandler(cfg, deps, tt).Handle))
	router.Any("/tiktok/refresh", adapt(handlers.NewTikTokRefreshHandler(cfg, deps, tt).Handle))
	router.Any("/tiktok/shops", adapt(handlers.NewTikTokShopsHandler(cfg, deps, tt).Handle))
	router.GET("/health", adapt(handlers.NewHealthHandler(cfg, deps).Handle))
	if sessions != nil {
		login, err := handlers.NewLoginHandler(cfg, deps, sessions)
		if err != nil {
			return nil, err
		}
		router.Any("/login", adapt(login.Handle))
	}
	return router, nil
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("load .env: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, deps, err := handlers.Bootstrap(ctx)
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	defer deps.Log.Sync()

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	sessions, err := security.NewSessionIssuer(cfg.Session.JWTSecret, cfg.Session.TTL)
	if err != nil {
		deps.Log.Warn("login route disabled", zap.Error(err))
		sessions = nil
	}

	router, err := newRouter(cfg, deps, sessions)
	if err != nil {
		log.Fatalf("router: %v", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		deps.Log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			deps.Log.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		deps.Log.Error("shutdown", zap.Error(err))
	}
}
