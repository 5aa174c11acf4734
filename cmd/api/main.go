package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"

	"github.com/yigit/workshophub/internal/pkg/logger"
	"github.com/yigit/workshophub/internal/server"
)

// @title WorkshopHub API
// @version 1.0
// @description Lecturers propose workshops, students vote on them, lecturers decide.

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token for authorization

func main() {
	configPath := flag.String("config", filepath.Join("configs", "config.yaml"), "path to the YAML config file")
	flag.Parse()

	srv, err := server.NewServer(context.Background(), *configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize server")
		os.Exit(1)
	}

	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		os.Exit(1)
	}

	logger.Info().Msg("Application finished gracefully.")
}
