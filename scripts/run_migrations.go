package main

import (
	"context"
	"os"

	"github.com/safar/neokart/internal/config"
	"github.com/safar/neokart/internal/database"
	"github.com/safar/neokart/migrations"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if len(os.Args) < 2 {
		logger.Fatal("usage: go run scripts/run_migrations.go [up|down]")
	}

	direction := os.Args[1]
	if direction != "up" && direction != "down" {
		logger.Fatal("direction must be 'up' or 'down'", zap.String("direction", direction))
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()

	db, err := database.NewConnection(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal("connect to database", zap.Error(err))
	}
	defer db.Close()

	ran, err := database.Migrate(ctx, db, migrations.FS, direction)
	if err != nil {
		logger.Fatal("run migrations", zap.Error(err))
	}

	for _, name := range ran {
		logger.Info("ran migration", zap.String("file", name))
	}
	logger.Info("migrations complete", zap.Int("count", len(ran)), zap.String("direction", direction))
}
