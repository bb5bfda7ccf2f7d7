package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the runtime settings of the server and the CLIs.
type Config struct {
	Port       string
	DB         DBConfig
	SessionTTL time.Duration
	Admin      AdminConfig
	Currency   string
}

// DBConfig selects the storage backend.
type DBConfig struct {
	Driver string
	DSN    string
}

// AdminConfig describes an account seeded into an empty database.
type AdminConfig struct {
	Email    string
	Password string
	Name     string
}

// Enabled reports whether an admin account should be seeded.
func (a AdminConfig) Enabled() bool {
	return a.Email != "" && a.Password != ""
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Could not load .env file, using environment only: %v", err)
	}

	ttl, err := time.ParseDuration(getEnv("SESSION_TTL", "0s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}
	if ttl < 0 {
		return nil, fmt.Errorf("invalid SESSION_TTL: must not be negative")
	}

	driver := strings.ToLower(getEnv("DB_DRIVER", "sqlite"))
	dsn := getEnv("DB_DSN", "")
	if dsn == "" {
		dsn = getEnv("DB_PATH", "walley.db")
	}

	return &Config{
		Port:       getEnv("PORT", "8080"),
		DB:         DBConfig{Driver: driver, DSN: dsn},
		SessionTTL: ttl,
		Admin: AdminConfig{
			Email:    os.Getenv("ADMIN_EMAIL"),
			Password: os.Getenv("ADMIN_PASSWORD"),
			Name:     getEnv("ADMIN_NAME", "Admin"),
		},
		Currency: strings.ToUpper(getEnv("CURRENCY", "USD")),
	}, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultVal
}
