package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/kbehari1995/habit-snake-bot/internal/app"
)

func main() {
	// Load .env if present; real deployments set the environment directly
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			log.Printf("Warning: failed to load .env: %v", err)
		}
	}

	// Create and initialize the application
	application, err := app.New()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Run the application
	if err := application.Run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}
