//go:build migrate

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/sirupsen/logrus"

	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/config"
	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/logger"
)

const usage = "Usage: migrate <up|down|version|force <version>>"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	log := logger.New(cfg.Server.LogLevel)

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = cfg.Database.DSN()
	}

	source := os.Getenv("MIGRATIONS_PATH")
	if source == "" {
		source = "file://migrations"
	}

	if len(os.Args) < 2 {
		log.Fatal(usage)
	}

	m, err := migrate.New(source, dsn)
	if err != nil {
		log.Fatalf("Failed to create migrate instance: %v", err)
	}
	defer m.Close()

	switch os.Args[1] {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		log.Info("Migrations applied successfully")

	case "down":
		if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("Failed to rollback migration: %v", err)
		}
		log.Info("Migration rolled back successfully")

	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			log.Fatalf("Failed to get version: %v", err)
		}
		log.WithFields(logrus.Fields{"version": version, "dirty": dirty}).Info("Current schema version")

	case "force":
		if len(os.Args) < 3 {
			log.Fatal(usage)
		}
		var version int
		if _, err := fmt.Sscanf(os.Args[2], "%d", &version); err != nil {
			log.Fatalf("Invalid version: %v", err)
		}
		if err := m.Force(version); err != nil {
			log.Fatalf("Failed to force version: %v", err)
		}
		log.WithField("version", version).Info("Forced schema version")

	default:
		log.Fatalf("Unknown command: %s", os.Args[1])
	}
}
