// Package config loads process configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every environment-sourced setting the proxy needs at runtime.
type Config struct {
	PlaceholderToken string
	UpstreamBaseURL  string
	ListenAddr       string
	KeyFilePath      string
	UsageFilePath    string
	LogDir           string
	LogLevel         string
	UpstreamTimeout  time.Duration
	EnableMetrics    bool
	EnableTracing    bool
}

// Load builds a Config from the current environment, applying the same
// defaults the proxy has always shipped with. Callers should blank-import
// github.com/joho/godotenv/autoload before calling Load so that a .env file
// in the working directory is merged into the process environment first.
func Load() *Config {
	return &Config{
		PlaceholderToken: getEnv("PROXY_PLACEHOLDER_TOKEN", "sk-placeholder"),
		UpstreamBaseURL:  strings.TrimRight(getEnv("PROXY_UPSTREAM_BASE_URL", "https://generativelanguage.googleapis.com"), "/"),
		ListenAddr:       getEnv("PROXY_LISTEN_ADDR", ":8080"),
		KeyFilePath:      getEnv("PROXY_KEY_FILE", "key.txt"),
		UsageFilePath:    getEnv("PROXY_USAGE_FILE", "key_usage.txt"),
		LogDir:           getEnv("PROXY_LOG_DIR", "."),
		LogLevel:         getEnv("PROXY_LOG_LEVEL", "info"),
		UpstreamTimeout:  time.Duration(getEnvInt("PROXY_UPSTREAM_TIMEOUT_SECONDS", 120)) * time.Second,
		EnableMetrics:    getEnvBool("PROXY_ENABLE_METRICS", false),
		EnableTracing:    getEnvBool("PROXY_ENABLE_TRACING", false),
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
