package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/Apurer/go-gin-storefront/internal/app/api"
	"github.com/Apurer/go-gin-storefront/internal/platform/migrations"
)

const usage = "usage: migrate [up|version]"

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	cfg, err := api.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.PostgresDSN == "" {
		log.Fatal("POSTGRES_DSN not set; nothing to migrate")
	}

	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}
	switch command {
	case "up":
		if err := migrations.Up(cfg.PostgresDSN, logger); err != nil {
			log.Fatalf("failed to apply migrations: %v", err)
		}
	case "version":
		version, dirty, err := migrations.Version(cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("failed to read schema version: %v", err)
		}
		logger.Info("schema version", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
	default:
		log.Fatal(usage)
	}
}
