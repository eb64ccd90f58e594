package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"thirdcoast.systems/fgcdesigner/internal/application"
	"thirdcoast.systems/fgcdesigner/internal/config"
	"thirdcoast.systems/fgcdesigner/internal/db"
)

func main() {
	startupCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	conf, err := config.LoadConfig(startupCtx)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if _, err := application.SetupLogger(conf.LogFormat, conf.LogLevel); err != nil {
		slog.Error("failed to set up logging", "error", err)
		os.Exit(1)
	}
	slog.Info("starting preset database migrator")

	pool, err := application.OpenDBPoolWithRetry(startupCtx, *conf)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	databaseConnection, err := db.NewDatabaseConnection(startupCtx, pool)
	if err != nil {
		slog.Error("failed to create database connection", "error", err)
		os.Exit(1)
	}
	defer databaseConnection.Close()

	if err := databaseConnection.Migrate(startupCtx); err != nil {
		slog.Error("failed to run PostgreSQL migrations", "error", err)
		os.Exit(1)
	}

	slog.Info("database migrations completed")
}
