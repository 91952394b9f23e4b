package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/vetintel/aigateway/internal/config"
	"github.com/vetintel/aigateway/internal/server"
)

func main() {
	// .env is optional; production supplies real environment variables.
	godotenv.Load()

	cfg := config.Load()

	srv, err := server.New(cfg)
	if err != nil {
		log.Printf("Server setup failed: %v", err)
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		log.Printf("Server failed to start: %v", err)
		os.Exit(1)
	}
}
