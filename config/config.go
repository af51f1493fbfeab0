package config

import (
	"os"
	"strconv"
)

// Config holds all configuration
type Config struct {
	HTTPPort   string
	DB         DBConfig
	Confluence ConfluenceConfig
	Log        LogConfig
}

// DBConfig holds PostgreSQL configuration
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// ConfluenceConfig holds Confluence REST API credentials. Either
// username/password (Server/Datacenter) or email/API token (Cloud).
type ConfluenceConfig struct {
	BaseURL  string
	Username string
	Password string
	Email    string
	APIToken string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
}

func (c ConfluenceConfig) Configured() bool {
	if c.BaseURL == "" {
		return false
	}
	return (c.Username != "" && c.Password != "") || (c.Email != "" && c.APIToken != "")
}

// Load reads configuration from environment variables. godotenv is loaded
// by main before this runs.
func Load() *Config {
	return &Config{
		HTTPPort: getEnv("PORT", "8080"),
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "mnt_db"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Confluence: ConfluenceConfig{
			BaseURL:  getEnv("CONFLUENCE_URL", ""),
			Username: getEnv("CONFLUENCE_USERNAME", ""),
			Password: getEnv("CONFLUENCE_PASSWORD", ""),
			Email:    getEnv("CONFLUENCE_EMAIL", ""),
			APIToken: getEnv("CONFLUENCE_API_TOKEN", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}
