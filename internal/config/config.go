// Package config loads server settings from the environment.
//
// Optional .env files are read first, most specific first, so a variable
// set in .env.local wins over the same one in .env. Variables already in
// the process environment always win over both.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/sakif/conduit/internal/auth"
)

// Environment keys.
const (
	EnvPort           = "PORT"
	EnvDBPath         = "DB_PATH"
	EnvCertPath       = "CERT_PATH"
	EnvCertPassphrase = "CERT_PASSPHRASE"
	EnvTokenTTL       = "TOKEN_TTL"
	EnvTokenIssuer    = "TOKEN_ISSUER"
	EnvLogLevel       = "LOG_LEVEL"
	EnvConduitEnv     = "CONDUIT_ENV"
)

type Config struct {
	Port           int
	DBPath         string
	CertPath       string
	CertPassphrase string
	TokenTTL       time.Duration
	TokenIssuer    string
	LogLevel       slog.Level
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Port:        8080,
		DBPath:      "data/conduit.db",
		CertPath:    "data/conduit.p12",
		TokenTTL:    auth.DefaultTokenTTL,
		TokenIssuer: "conduit",
		LogLevel:    slog.LevelInfo,
	}
}

// LoadDotEnvs reads the .env files under dir that exist. CONDUIT_ENV
// (default "dev") selects the environment specific ones.
func LoadDotEnvs(dir string) {
	env := os.Getenv(EnvConduitEnv)
	if env == "" {
		env = "dev"
	}
	if dir != "" && !strings.HasSuffix(dir, "/") {
		dir += "/"
	}

	// godotenv never overrides a variable that is already set, so the first
	// file to mention a key wins. Missing files are not an error.
	_ = godotenv.Load(dir + ".env." + env + ".local")
	_ = godotenv.Load(dir + ".env.local")
	_ = godotenv.Load(dir + ".env." + env)
	_ = godotenv.Load(dir + ".env")
}

// Load reads the configuration from the environment on top of Default.
func Load() (Config, error) {
	cfg := Default()

	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return cfg, fmt.Errorf("config: invalid %s %q", EnvPort, v)
		}
		cfg.Port = port
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(EnvCertPath); v != "" {
		cfg.CertPath = v
	}
	cfg.CertPassphrase = os.Getenv(EnvCertPassphrase)

	if v := os.Getenv(EnvTokenTTL); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil || ttl <= 0 {
			return cfg, fmt.Errorf("config: invalid %s %q: want a positive duration such as 1h", EnvTokenTTL, v)
		}
		cfg.TokenTTL = ttl
	}
	if v := os.Getenv(EnvTokenIssuer); v != "" {
		cfg.TokenIssuer = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return cfg, fmt.Errorf("config: invalid %s %q", EnvLogLevel, v)
		}
	}

	return cfg, nil
}
