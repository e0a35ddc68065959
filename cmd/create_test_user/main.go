package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"kash_budget/internal/db"
	"kash_budget/internal/domain"
	"kash_budget/internal/logger"
	"kash_budget/internal/repository"
	"kash_budget/internal/service"

	"github.com/joho/godotenv"
)

const (
	testEmail    = "tester@kash.local"
	testPassword = "tester-password"
)

func main() {
	_ = godotenv.Load()

	// expects DATABASE_URL and JWT_SECRET env vars
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Fatal("DATABASE_URL not set")
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		logger.Fatal("JWT_SECRET not set")
	}

	pool := db.Connect(dsn)
	defer pool.Close()

	auth := service.NewAuthService(
		repository.NewUserRepository(pool),
		service.NewBcryptHasher(0),
		service.NewTokenService(secret, 24*time.Hour),
		service.NewAuditService(repository.NewAuditRepository(pool), 5*time.Second),
		5*time.Second,
	)
	ctx := context.Background()

	res, err := auth.Register(ctx, service.RegisterInput{Email: testEmail, Password: testPassword})
	switch {
	case errors.Is(err, domain.ErrAlreadyExists):
		logger.Info("user already exists, logging in", "email", testEmail)
		res, err = auth.Login(ctx, testEmail, testPassword)
	case err == nil:
		logger.Info("user created", "email", testEmail, "user_id", res.User.ID)
	}
	if err != nil {
		pool.Close()
		logger.Fatal("failed to obtain token", "error", err)
	}

	fmt.Printf("user_id=%s\n", res.User.ID)
	fmt.Printf("token=%s\n", res.AccessToken)
}
