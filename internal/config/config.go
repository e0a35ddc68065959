package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"kash_budget/internal/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort     string
	AppVersion  string
	APIPrefix   string
	CORSOrigin  string
	DatabaseURL string
	DevMode     bool

	JWTSecret  string
	JWTTTL     time.Duration
	BcryptCost int

	// Per-call budget for store round trips
	StoreTimeout time.Duration

	LogLevel string
	LogJSON  bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	APIRateLimit   int
	APIRateWindow  time.Duration
	AuthRateLimit  int
	AuthRateWindow time.Duration
}

// Load reads the environment (and .env when present) and exits on missing
// required settings.
func Load() *Config {
	_ = godotenv.Load()

	cfg, err := FromEnv(os.Getenv)
	if err != nil {
		logger.Fatal("invalid configuration", "error", err)
	}
	return cfg
}

// FromEnv builds a Config from the given lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		AppPort:        stringOr(getenv("APP_PORT"), "8080"),
		AppVersion:     stringOr(getenv("APP_VERSION"), "dev"),
		APIPrefix:      normalizePrefix(stringOr(getenv("API_PREFIX"), "/api")),
		CORSOrigin:     getenv("CORS_ORIGIN"),
		DatabaseURL:    getenv("DATABASE_URL"),
		DevMode:        getenv("DEV_MODE") == "true",
		JWTSecret:      getenv("JWT_SECRET"),
		JWTTTL:         durationOr(getenv("JWT_TTL"), 24*time.Hour),
		BcryptCost:     intOr(getenv("BCRYPT_COST"), 12),
		StoreTimeout:   durationOr(getenv("STORE_TIMEOUT"), 5*time.Second),
		LogLevel:       stringOr(getenv("LOG_LEVEL"), "info"),
		LogJSON:        getenv("LOG_FORMAT") == "json",
		RedisAddr:      getenv("REDIS_ADDR"),
		RedisPassword:  getenv("REDIS_PASSWORD"),
		RedisDB:        intOr(getenv("REDIS_DB"), 0),
		APIRateLimit:   intOr(getenv("API_RATE_LIMIT"), 100),
		APIRateWindow:  secondsOr(getenv("API_RATE_WINDOW_SECONDS"), time.Minute),
		AuthRateLimit:  intOr(getenv("AUTH_RATE_LIMIT"), 5),
		AuthRateWindow: secondsOr(getenv("AUTH_RATE_WINDOW_SECONDS"), time.Minute),
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}
	// dev mode runs on the in-memory store
	if cfg.DatabaseURL == "" && !cfg.DevMode {
		return nil, errors.New("DATABASE_URL is not set")
	}

	return cfg, nil
}

func stringOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func intOr(v string, def int) int {
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func durationOr(v string, def time.Duration) time.Duration {
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func secondsOr(v string, def time.Duration) time.Duration {
	n := intOr(v, 0)
	if n <= 0 {
		return def
	}
	return time.Duration(n) * time.Second
}

func normalizePrefix(p string) string {
	p = strings.TrimRight(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}
