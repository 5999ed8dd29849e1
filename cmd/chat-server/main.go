package main

import (
	"log"

	"github.com/searchktools/chat-server/app"
	"github.com/searchktools/chat-server/config"
)

func main() {
	cfg := config.New()

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("server startup failed: %v", err)
	}
}
