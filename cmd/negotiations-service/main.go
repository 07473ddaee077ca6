package main

import (
	"fmt"
	"os"

	"github.com/fixwise/negotiations/internal/auth"
	"github.com/fixwise/negotiations/internal/config"
	"github.com/fixwise/negotiations/internal/db"
	"github.com/fixwise/negotiations/internal/excel"
	httphandler "github.com/fixwise/negotiations/internal/http"
	"github.com/fixwise/negotiations/internal/http/middleware"
	"github.com/fixwise/negotiations/internal/logger"
	"github.com/fixwise/negotiations/internal/pdf"
	"github.com/fixwise/negotiations/internal/repository"
	"github.com/fixwise/negotiations/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	database, err := db.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	providerRepo := repository.NewProviderRepository(database)
	sessionRepo := repository.NewSessionRepository(database)

	negotiationService := service.NewNegotiationService(
		providerRepo,
		sessionRepo,
		pdf.NewGenerator(),
		excel.NewGenerator(),
		cfg,
		log,
	)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)
	handler := httphandler.NewHandler(negotiationService, log)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, cfg.Environment)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	log.Info().Str("addr", addr).Msg("starting negotiations service")

	if err := router.Run(addr); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
