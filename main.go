package main

import (
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"farmapos/internal/api"
	"farmapos/internal/config"
	"farmapos/internal/database"
	"farmapos/internal/migrations"
	"farmapos/internal/pos"
	"farmapos/internal/seed"
)

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	cfg := config.Load()
	db, err := database.Connect(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("unable to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := migrations.Run(db); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}
	seed.LoadProducts(db, "assets/products.csv", logger)

	posService := pos.NewService(db, logger)
	handler := api.New(db, posService, logger, cfg.Secret)

	logger.Info("FarmaPOS server starting", zap.String("port", cfg.HTTPPort))
	if err := http.ListenAndServe(":"+cfg.HTTPPort, handler.Router()); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
