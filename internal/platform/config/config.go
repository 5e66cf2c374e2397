package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries all deployment-provided settings for the API process.
type Config struct {
	Env  string
	Port string

	// StorageBackend selects the persistence adapters: "memory" or "postgres".
	StorageBackend string
	DatabaseURL    string

	// JWTSecret signs and verifies HS256 bearer tokens.
	JWTSecret string
	TokenTTL  time.Duration

	// NearbyRadiusMeters bounds the nearby-NGO search.
	NearbyRadiusMeters float64
}

// Load reads configuration from the environment, consulting .env files when
// present. It fails fast on settings that would only blow up at request time.
func Load() (Config, error) {
	// Optional; absence of the files is not an error.
	_ = godotenv.Load(".env", ".env.local")

	cfg := Config{
		Env:                getenv("APP_ENV", "development"),
		Port:               getenv("PORT", "8080"),
		StorageBackend:     getenv("STORAGE_BACKEND", "memory"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		TokenTTL:           12 * time.Hour,
		NearbyRadiusMeters: 5000,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("missing required env var: JWT_SECRET")
	}
	if cfg.StorageBackend == "postgres" && cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("STORAGE_BACKEND=postgres requires DATABASE_URL")
	}

	if v := os.Getenv("TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("TOKEN_TTL must be a positive duration (e.g. 12h): %q", v)
		}
		cfg.TokenTTL = d
	}
	if v := os.Getenv("NEARBY_RADIUS_METERS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return Config{}, fmt.Errorf("NEARBY_RADIUS_METERS must be a positive number: %q", v)
		}
		cfg.NearbyRadiusMeters = f
	}

	return cfg, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
