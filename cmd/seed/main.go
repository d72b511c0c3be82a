package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shrimpsizemoose/trekker/logger"

	"clubhub/internal/config"
	"clubhub/internal/db"
	"clubhub/internal/seed"
)

func main() {
	path := flag.String("file", "seed.toml", "Path to the TOML seed file")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Error.Printf(".env not loaded: %v", err)
	}
	cfg := config.Load()

	file, err := seed.Load(*path)
	if err != nil {
		logger.Error.Fatalf("Failed to load seed file: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, 2)
	if err != nil {
		logger.Error.Fatalf("db connection failed: %v", err)
	}
	defer pool.Close()

	summary, err := seed.Apply(ctx, db.NewStore(pool), file, cfg.BcryptCost)
	if err != nil {
		logger.Error.Fatalf("seed failed: %v", err)
	}
	logger.Info.Printf("seed done: admin created=%t, partners upserted=%d", summary.AdminCreated, summary.Partners)
}
