package main

import (
	"log"
	"os"

	"github.com/wikimedia/klaxon/internal/config"
	"github.com/wikimedia/klaxon/internal/server"
	"github.com/wikimedia/klaxon/pkg/logger"

	"github.com/joho/godotenv"
)

// main is the entry point for the Klaxon server.
// It performs the following operations:
//  1. Parses command-line flags for server configuration
//  2. Loads environment variables from .env file if present
//  3. Loads configuration from YAML files with flag overrides
//  4. Initializes the HTTP server with the incident feed cache and the
//     paging dispatcher
//  5. Begins listening for HTTP requests
func main() {
	flags := parseFlags()

	if flags.Help {
		flags.showHelp()
		return
	}
	if flags.Version {
		flags.showVersion()
		return
	}
	if err := flags.validate(); err != nil {
		log.Printf("Invalid flags: %v", err)
		os.Exit(1)
	}

	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Load configuration from YAML and environment variables
	cfg := config.LoadWithFlags(flags)

	// Create and start server
	srv := server.New(cfg)

	logger.Infof("Starting on port %s", cfg.Port)
	logger.Infof("Environment: %s", cfg.Environment)
	logger.Infof("Log level: %s", cfg.LogLevel)

	if cfg.VictorOps.APIID == "" || cfg.VictorOps.APIKey == "" {
		logger.Warnf("VictorOps API credentials not set - incident feed and on-call resolution will fail")
	}
	if cfg.VictorOps.CreateIncidentURL == "" {
		logger.Warnf("Create-incident URL not set - paging will fail")
	}
	if cfg.Paging.WebhookURL != "" {
		logger.Infof("Chat webhook: enabled (%s)", cfg.Paging.WebhookName)
	} else {
		logger.Infof("Chat webhook: disabled")
	}
	if cfg.IRC.Host != "" {
		logger.Infof("SAL announcements: enabled (%s:%d as %s)", cfg.IRC.Host, cfg.IRC.Port, cfg.IRC.Nick)
	} else {
		logger.Infof("SAL announcements: disabled")
	}

	if err := srv.Start(); err != nil {
		logger.Fatalf("Server failed to start: %v", err)
	}
}
