package main

import (
	"context"
	"log"

	"github.com/caarlos0/env/v11"

	"github.com/meridianbio/riskcore/internal/api"
	"github.com/meridianbio/riskcore/internal/auth"
)

type config struct {
	Port          string   `env:"PORT" envDefault:"8080"`
	JWTSecret     string   `env:"JWT_SECRET"`
	AdminEmail    string   `env:"ADMIN_EMAIL"`
	AdminPassword string   `env:"ADMIN_PASSWORD"`
	CORSOrigins   []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:*"`
}

func main() {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("Failed to parse configuration: %v", err)
	}

	authCfg := auth.DefaultConfig()
	if cfg.JWTSecret != "" {
		authCfg.SecretKey = cfg.JWTSecret
	}
	authService := auth.NewJWTService(authCfg, auth.NewMemoryRepository())

	// Accounts are in-memory, so the admin user is seeded on every start.
	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if _, err := authService.Register(context.Background(), cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.Fatalf("Failed to seed admin account: %v", err)
		}
	}

	server := api.NewServer(api.Config{CORSOrigins: cfg.CORSOrigins}, authService)

	log.Printf("Starting riskcore server on port %s", cfg.Port)
	if err := server.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
