package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"

	"storelink/internal/handlers"
	"storelink/internal/shopee"
)

func main() {
	ctx := context.Background()

	cfg, deps, err := handlers.Bootstrap(ctx)
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	defer deps.Log.Sync()

	client := shopee.NewClient(cfg.Shopee.PartnerID, cfg.Shopee.PartnerKey, cfg.Shopee.Host, cfg.ExchangeTimeout)
	h := handlers.NewShopeeRefreshHandler(cfg, deps, client)
	lambda.Start(h.Handle)
}
