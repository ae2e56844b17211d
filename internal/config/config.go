package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Inference backend
	BackendURL     string
	BackendTimeout time.Duration

	// Metadata store
	MetadataPath string

	// Storage
	StorageType    string
	StoragePath    string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	MaxUploadBytes int64

	// Redis (optional: distributed rate limiting and event fan-out)
	RedisURL string

	// Rate limiting
	ChatRateLimitPerMin int

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                getEnvOrDefault("PORT", "8080"),
		Env:                 getEnvOrDefault("ENV", "development"),
		BackendURL:          strings.TrimRight(getEnvOrDefault("BACKEND_URL", "http://localhost:8000"), "/"),
		BackendTimeout:      getEnvAsDurationOrDefault("BACKEND_TIMEOUT", 30*time.Second),
		MetadataPath:        getEnvOrDefault("METADATA_PATH", "./data/textbooks.json"),
		StorageType:         getEnvOrDefault("STORAGE_TYPE", "local"),
		StoragePath:         getEnvOrDefault("STORAGE_PATH", "./uploads"),
		MinioEndpoint:       getEnvOrDefault("MINIO_ENDPOINT", ""),
		MinioAccessKey:      getEnvOrDefault("MINIO_ACCESS_KEY", ""),
		MinioSecretKey:      getEnvOrDefault("MINIO_SECRET_KEY", ""),
		MinioBucket:         getEnvOrDefault("MINIO_BUCKET", "textbooks"),
		MinioUseSSL:         getEnvAsBoolOrDefault("MINIO_USE_SSL", false),
		MaxUploadBytes:      int64(getEnvAsIntOrDefault("MAX_UPLOAD_BYTES", 100*1024*1024)),
		RedisURL:            getEnvOrDefault("REDIS_URL", ""),
		ChatRateLimitPerMin: getEnvAsIntOrDefault("CHAT_RATE_LIMIT_PER_MINUTE", 30),
		FrontendURL:         getEnvOrDefault("FRONTEND_URL", "http://localhost:3000"),
	}

	if cfg.StorageType == "minio" {
		cfg.MinioEndpoint = mustGetEnv("MINIO_ENDPOINT")
		cfg.MinioAccessKey = mustGetEnv("MINIO_ACCESS_KEY")
		cfg.MinioSecretKey = mustGetEnv("MINIO_SECRET_KEY")
	}

	return cfg
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsBoolOrDefault(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(strings.TrimSpace(val))
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(strings.TrimSpace(val))
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
