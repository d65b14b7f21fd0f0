// Package config reads service configuration from the environment.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Store backends selectable via LEDGER_STORE.
const (
	StoreFile     = "file"
	StorePostgres = "postgres"
)

// Config holds all runtime settings for the ledger service.
type Config struct {
	Port  string
	Store string

	// File store.
	DataDir     string
	SeedCatalog bool

	// Postgres store.
	DB DBConfig
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// Load reads an optional .env file, then the environment, falling back to
// local-development defaults.
func Load() Config {
	// Missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	return Config{
		Port:        getEnv("PORT", "8080"),
		Store:       getEnv("LEDGER_STORE", StoreFile),
		DataDir:     getEnv("LEDGER_DATA_DIR", "./data"),
		SeedCatalog: getEnv("LEDGER_SEED", "") == "1",
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "ticketledger"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
	}
}

// DSN builds a libpq-compatible connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
