package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"campusev/backend/libs/db"
	"campusev/backend/libs/logging"
	"campusev/backend/libs/migrate"
	"campusev/backend/services/charging-service/internal/config"
	"campusev/backend/services/charging-service/migrations"
)

func main() {
	cmd := flag.String("cmd", "up", "migration command: up|down|status|version|validate")
	flag.Parse()

	logger, err := logging.NewLogger("charging-migrate")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	src := migrations.Source()
	if *cmd == "validate" {
		if err := migrate.Validate(src); err != nil {
			logger.Fatal("migration validation failed", zap.Error(err))
		}
		fmt.Println("migration validation passed")
		return
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("resource not working: config", zap.Error(err))
	}
	sqlDB, err := db.NewPostgresDB(cfg.Database.DSN)
	if err != nil {
		logger.Fatal("resource not working: database", zap.Error(err))
	}
	defer sqlDB.Close()

	switch *cmd {
	case "up", "down", "status", "version":
		logger.Info("migrate ready", zap.String("cmd", *cmd))
		if err := migrate.Run(context.Background(), sqlDB, src, *cmd); err != nil {
			sqlDB.Close()
			logger.Fatal("goose command failed", zap.String("cmd", *cmd), zap.Error(err))
		}
	default:
		fmt.Fprintln(os.Stderr, "unknown -cmd value:", *cmd)
		os.Exit(1)
	}
}
