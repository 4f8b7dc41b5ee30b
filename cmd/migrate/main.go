package main

import (
	"context"
	"log"
	"os"
	"time"

	"vizninja/internal/config"
	"vizninja/internal/migration"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/viper"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found, using environment variables")
	}

	v := viper.New()
	if len(os.Args) > 1 {
		v.Set("DATABASE_URL", os.Args[1])
	}
	// The migration only needs the database, whatever store the dashboard uses.
	v.Set("STORE_DRIVER", config.StorePostgres)

	cfg, err := config.LoadFrom(v)
	if err != nil {
		log.Fatalf("Usage: migrate [database_url]: %v", err)
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	runner := migration.NewRunner()
	log.Printf("Running migrations (version %s)", runner.Version())
	if err := runner.Run(ctx, db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Printf("✅ Migrations complete")
}
