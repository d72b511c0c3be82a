package main

import (
	"flag"
	"os"

	"github.com/joho/godotenv"
	"github.com/shrimpsizemoose/trekker/logger"

	"clubhub/internal/config"
	"clubhub/internal/db"
)

func main() {
	dir := flag.String("dir", "migrations", "Directory holding .sql migrations")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Error.Printf(".env not loaded: %v", err)
	}
	cfg := config.Load()

	applied, err := db.ApplyMigrations(cfg.DatabaseURL, *dir)
	for _, name := range applied {
		logger.Info.Printf("applied %s", name)
	}
	if err != nil {
		logger.Error.Fatalf("migration failed: %v", err)
	}
	logger.Info.Printf("%d migrations applied", len(applied))
}
