package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds everything the server reads from the environment.
type Config struct {
	Host           string
	Port           string
	DataDir        string
	StoreBackend   string
	DatabaseURL    string
	AllowedOrigins []string
	JWTSecret      string
	LogLevel       string

	// DotEnvLoaded reports whether a .env file was found.
	DotEnvLoaded bool
}

// Load reads an optional .env file and then the process environment.
// A missing .env file is not an error.
func Load() (*Config, error) {
	dotEnvLoaded := godotenv.Load() == nil

	cfg := &Config{
		DotEnvLoaded:   dotEnvLoaded,
		Host:           env("HOST", "0.0.0.0"),
		Port:           env("PORT", "5000"),
		DataDir:        env("DATA_DIR", "./data"),
		StoreBackend:   strings.ToLower(env("STORE_BACKEND", "json")),
		DatabaseURL:    env("DATABASE_URL", postgresURLFromParts()),
		AllowedOrigins: splitOrigins(env("ALLOWED_ORIGINS", "*")),
		JWTSecret:      strings.TrimSpace(os.Getenv("JWT_SECRET")),
		LogLevel:       env("LOG_LEVEL", "info"),
	}

	if cfg.StoreBackend == "postgres" && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("STORE_BACKEND=postgres requires DATABASE_URL or user/password/host/port/dbname")
	}
	return cfg, nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func env(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// postgresURLFromParts builds a DSN from the discrete variables used by hosted
// Postgres dashboards. Returns "" unless host and dbname are both set.
func postgresURLFromParts() string {
	dbUser := strings.TrimSpace(os.Getenv("user"))
	dbPass := strings.TrimSpace(os.Getenv("password"))
	dbHost := strings.TrimSpace(os.Getenv("host"))
	dbPort := env("port", "5432")
	dbName := strings.TrimSpace(os.Getenv("dbname"))
	if dbHost == "" || dbName == "" {
		return ""
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=require", dbUser, dbPass, dbHost, dbPort, dbName)
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
