package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"

	"storelink/internal/handlers"
	"storelink/internal/security"
)

func main() {
	ctx := context.Background()

	cfg, deps, err := handlers.Bootstrap(ctx)
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	defer deps.Log.Sync()

	sessions, err := security.NewSessionIssuer(cfg.Session.JWTSecret, cfg.Session.TTL)
	if err != nil {
		log.Fatalf("session issuer: %v", err)
	}

	h, err := handlers.NewLoginHandler(cfg, deps, sessions)
	if err != nil {
		log.Fatalf("login handler: %v", err)
	}
	lambda.Start(h.Handle)
}
