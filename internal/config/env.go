package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	Port           string
	DatabaseURL    string
	SslCertPath    string
	EntityBackend  string
	JWTSecret      string
	AwsAccessKey   string
	AwsSecretKey   string
	AwsRegion      string
	BucketName     string
	S3Endpoint     string
	FunctionsURL   string
	FunctionsToken string
	RedisURL       string
	// BoardCacheBucket is the time bucket derived session boards are cached
	// for. Zero disables board caching.
	BoardCacheBucket  time.Duration
	SessionTimezone   string
	TranscriptWorkers int
	CORSOrigins       []string
	LogLevel          string
	LogFormat         string
}

// LoadConfig loads the environment variables (and .env when present) and
// returns the config. Call Validate before using it.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:              getEnv("PORT", "8080"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		SslCertPath:       getEnv("SSL_CERT_PATH", ""),
		EntityBackend:     getEnv("ENTITY_BACKEND", BackendPostgres),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		AwsAccessKey:      getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey:      getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:         getEnv("AWS_REGION", "us-east-2"),
		BucketName:        getEnv("BUCKET_NAME", "coachhub-files"),
		S3Endpoint:        getEnv("S3_ENDPOINT", ""),
		FunctionsURL:      getEnv("FUNCTIONS_URL", ""),
		FunctionsToken:    getEnv("FUNCTIONS_TOKEN", ""),
		RedisURL:          getEnv("REDIS_URL", ""),
		BoardCacheBucket:  getEnvDuration("BOARD_CACHE_BUCKET", 30*time.Second),
		SessionTimezone:   getEnv("SESSION_TIMEZONE", "UTC"),
		TranscriptWorkers: getEnvInt("TRANSCRIPT_WORKERS", 2),
		CORSOrigins:       getEnvList("CORS_ORIGINS", []string{"http://localhost:5173"}),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "json"),
	}
}

// Validate reports the first missing or inconsistent setting.
func (c *Config) Validate() error {
	switch c.EntityBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL not set")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("ENTITY_BACKEND must be %q or %q, got %q", BackendPostgres, BackendMemory, c.EntityBackend)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET not set")
	}
	if c.FunctionsURL == "" {
		return fmt.Errorf("FUNCTIONS_URL not set")
	}
	if c.TranscriptWorkers < 1 {
		return fmt.Errorf("TRANSCRIPT_WORKERS must be at least 1")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves SessionTimezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.SessionTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TIMEZONE %q: %w", c.SessionTimezone, err)
	}
	return loc, nil
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		warnf("%s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		warnf("%s=%q not a duration, using default %s", key, v, def)
		return def
	}
	return d
}

// comma separated, blanks dropped
func getEnvList(key string, def []string) []string {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

// config loads before the logger exists
func warnf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "WARN: "+format+"\n", args...)
}
