package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"

	"storelink/internal/handlers"
	"storelink/internal/tiktok"
)

func main() {
	ctx := context.Background()

	cfg, deps, err := handlers.Bootstrap(ctx)
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	defer deps.Log.Sync()

	client := tiktok.NewClient(cfg.TikTok.AppKey, cfg.TikTok.AppSecret, cfg.TikTok.TokenURL, cfg.TikTok.RefreshURL, cfg.ExchangeTimeout)
	client.APIHost = cfg.TikTok.APIHost
	h := handlers.NewTikTokShopsHandler(cfg, deps, client)
	lambda.Start(h.Handle)
}
