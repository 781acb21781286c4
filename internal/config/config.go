// Package config loads server settings from the environment.
//
// An optional .env file is read first with godotenv. Variables already set
// in the process environment win over the file, so a deployment can always
// override what is checked in for local development.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Blob backends selectable with BLOB_BACKEND.
const (
	BlobBackendSQLite = "sqlite"
	BlobBackendGridFS = "gridfs"
)

// Config is every setting the server reads at startup.
type Config struct {
	Port     int
	LogLevel slog.Level
	DBPath   string

	JWTSecret string
	TokenTTL  time.Duration

	BlobBackend    string
	MongoURI       string
	MongoDB        string
	MaxUploadBytes int64

	CORSOrigins []string
	FrontendURL string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string

	AdminEmail    string
	AdminPassword string
}

// GoogleEnabled reports whether the Google sign-in routes should be mounted.
func (c Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// Load reads the given .env files (".env" when none are named), then the
// environment, and validates the result. Missing .env files are ignored.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: loading %s: %w", f, err)
		}
	}

	var errs []error
	cfg := Config{
		DBPath:             getEnvOrDefault("DB_PATH", "data/nebula.db"),
		JWTSecret:          getEnvOrDefault("JWT_SECRET", ""),
		BlobBackend:        strings.ToLower(getEnvOrDefault("BLOB_BACKEND", BlobBackendSQLite)),
		MongoURI:           getEnvOrDefault("MONGO_URI", ""),
		MongoDB:            getEnvOrDefault("MONGO_DB", "nebula"),
		CORSOrigins:        splitList(getEnvOrDefault("CORS_ORIGINS", "*")),
		FrontendURL:        strings.TrimRight(getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"), "/"),
		GoogleClientID:     getEnvOrDefault("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnvOrDefault("GOOGLE_CLIENT_SECRET", ""),
		AdminEmail:         strings.ToLower(getEnvOrDefault("ADMIN_EMAIL", "")),
		AdminPassword:      getEnvOrDefault("ADMIN_PASSWORD", ""),
	}

	var err error
	if cfg.Port, err = getIntEnv("PORT", 5000); err != nil {
		errs = append(errs, err)
	} else if cfg.Port < 1 || cfg.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", cfg.Port))
	}
	if cfg.LogLevel, err = getLevelEnv("LOG_LEVEL", slog.LevelInfo); err != nil {
		errs = append(errs, err)
	}
	if cfg.TokenTTL, err = getDurationEnv("TOKEN_TTL", 7*24*time.Hour); err != nil {
		errs = append(errs, err)
	}
	maxUpload, err := getIntEnv("MAX_UPLOAD_BYTES", 5<<20)
	if err != nil {
		errs = append(errs, err)
	} else if maxUpload <= 0 {
		errs = append(errs, fmt.Errorf("MAX_UPLOAD_BYTES must be positive"))
	}
	cfg.MaxUploadBytes = int64(maxUpload)

	cfg.GoogleCallbackURL = getEnvOrDefault("GOOGLE_CALLBACK_URL",
		fmt.Sprintf("http://localhost:%d/api/auth/google/callback", cfg.Port))

	if len(cfg.JWTSecret) < 16 {
		errs = append(errs, errors.New("JWT_SECRET must be set and at least 16 characters"))
	}
	switch cfg.BlobBackend {
	case BlobBackendSQLite:
	case BlobBackendGridFS:
		if cfg.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required when BLOB_BACKEND=gridfs"))
		}
	default:
		errs = append(errs, fmt.Errorf("BLOB_BACKEND %q is not one of sqlite, gridfs", cfg.BlobBackend))
	}
	if (cfg.AdminEmail == "") != (cfg.AdminPassword == "") {
		errs = append(errs, errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set together"))
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) (int, error) {
	value := getEnvOrDefault(key, "")
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", key, value)
	}
	return n, nil
}

func getDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value := getEnvOrDefault(key, "")
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s: %q is not a positive duration", key, value)
	}
	return d, nil
}

func getLevelEnv(key string, defaultValue slog.Level) (slog.Level, error) {
	value := getEnvOrDefault(key, "")
	if value == "" {
		return defaultValue, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return 0, fmt.Errorf("%s: %q is not a log level", key, value)
	}
	return level, nil
}

// splitList splits a comma separated value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
