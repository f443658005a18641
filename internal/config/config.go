package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Admin    AdminConfig
	Booking  BookingConfig
	Storage  StorageConfig
	CORS     CORSConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string
	Port string
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds the optional Redis cache configuration.
// The cache is disabled when Addr is empty.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// AdminConfig holds admin authentication configuration.
// Session timeout, attempt limit and lockout duration are the defaults
// seeded into the credential store on first run; once seeded, the stored
// values win.
type AdminConfig struct {
	TokenSecret            string
	TokenIssuer            string
	CookieName             string
	CookieSecure           bool
	BindSessionIP          bool
	SessionTimeoutMinutes  int
	MaxLoginAttempts       int
	LockoutDurationMinutes int
}

// BookingConfig holds the upstream practice-management API configuration
// for the appointment proxy.
type BookingConfig struct {
	APIBaseURL string
	AdminEmail string
	Timeout    time.Duration
}

// StorageConfig holds S3/MinIO configuration for gallery media
type StorageConfig struct {
	Endpoint           string
	Region             string
	AccessKeyID        string
	SecretAccessKey    string
	Bucket             string
	UseSSL             bool
	PublicBaseURL      string
	PresignedURLExpiry time.Duration
}

// CORSConfig holds allowed origins for the public and admin frontends
type CORSConfig struct {
	AllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnv("SERVER_PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "kinesite"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
			TTL:      getDurationEnv("REDIS_CACHE_TTL_MINUTES", 5*time.Minute),
		},
		Admin: AdminConfig{
			TokenSecret:            getEnv("ADMIN_TOKEN_SECRET", ""),
			TokenIssuer:            getEnv("ADMIN_TOKEN_ISSUER", "kinesite"),
			CookieName:             getEnv("ADMIN_COOKIE_NAME", "admin_token"),
			CookieSecure:           getBoolEnv("ADMIN_COOKIE_SECURE", true),
			BindSessionIP:          getBoolEnv("ADMIN_BIND_SESSION_IP", true),
			SessionTimeoutMinutes:  getIntEnv("ADMIN_SESSION_TIMEOUT_MINUTES", 60),
			MaxLoginAttempts:       getIntEnv("ADMIN_MAX_LOGIN_ATTEMPTS", 5),
			LockoutDurationMinutes: getIntEnv("ADMIN_LOCKOUT_DURATION_MINUTES", 15),
		},
		Booking: BookingConfig{
			APIBaseURL: getEnv("BOOKING_API_URL", ""),
			AdminEmail: getEnv("ADMIN_EMAIL", ""),
			Timeout:    getDurationEnv("BOOKING_TIMEOUT_MINUTES", time.Minute),
		},
		Storage: StorageConfig{
			Endpoint:           getEnv("S3_ENDPOINT", ""),
			Region:             getEnv("S3_REGION", "us-east-1"),
			AccessKeyID:        getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey:    getEnv("S3_SECRET_ACCESS_KEY", ""),
			Bucket:             getEnv("S3_BUCKET", "kinesite-gallery"),
			UseSSL:             getBoolEnv("S3_USE_SSL", true),
			PublicBaseURL:      getEnv("S3_PUBLIC_BASE_URL", ""),
			PresignedURLExpiry: getDurationEnv("S3_PRESIGNED_URL_EXPIRY_MINUTES", 15*time.Minute),
		},
		CORS: CORSConfig{
			AllowedOrigins: getListEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
	}
}

// DSN returns the PostgreSQL connection string
func (d *DatabaseConfig) DSN() string {
	return "host=" + d.Host +
		" port=" + d.Port +
		" user=" + d.User +
		" password=" + d.Password +
		" dbname=" + d.DBName +
		" sslmode=" + d.SSLMode
}

// Enabled reports whether the Redis cache is configured
func (r *RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv returns an integer from environment variable or default
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// getBoolEnv returns a boolean from environment variable or default
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	}
	return defaultValue
}

// getDurationEnv returns a duration in minutes from environment variable or default
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

// getListEnv returns a comma-separated list from environment variable or default
func getListEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		var list []string
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				list = append(list, trimmed)
			}
		}
		if len(list) > 0 {
			return list
		}
	}
	return defaultValue
}
