package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"

	"storelink/internal/handlers"
)

func main() {
	ctx := context.Background()

	cfg, deps, err := handlers.Bootstrap(ctx)
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	defer deps.Log.Sync()

	h := handlers.NewHealthHandler(cfg, deps)
	lambda.Start(h.Handle)
}
