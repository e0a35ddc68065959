package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"kash_budget/internal/db"
	"kash_budget/internal/logger"
	"kash_budget/internal/migrations"

	"github.com/joho/godotenv"
)

func main() {
	apply := flag.Bool("apply", false, "apply migrations (default: list them)")
	flag.Parse()

	if !*apply {
		names, err := migrations.List()
		if err != nil {
			logger.Fatal("list migrations", "error", err)
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return
	}

	_ = godotenv.Load()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Fatal("DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := db.Open(ctx, dsn)
	if err != nil {
		logger.Fatal("failed to connect database", "error", err)
	}
	defer pool.Close()

	err = migrations.Apply(ctx, pool, func(name string) {
		fmt.Printf("applied %s\n", name)
	})
	if err != nil {
		pool.Close()
		logger.Fatal("migration failed", "error", err)
	}
}
