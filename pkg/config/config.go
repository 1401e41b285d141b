package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	GitHub   GitHubConfig
	Sync     SyncConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port         string
	Mode         string
	ReadTimeout  int
	WriteTimeout int
	// APIToken guards the admin endpoints when set
	APIToken string
}

type DatabaseConfig struct {
	Path string
}

// HostConfig holds the endpoints and credential for one GitHub host.
type HostConfig struct {
	BaseURL    string
	GraphQLURL string
	Token      string
}

type GitHubConfig struct {
	Standard       HostConfig
	Enterprise     HostConfig
	RequestTimeout time.Duration
	MaxRetries     int
}

// Host returns the host configuration for the given mode.
func (c GitHubConfig) Host(enterprise bool) HostConfig {
	if enterprise {
		return c.Enterprise
	}
	return c.Standard
}

type SyncConfig struct {
	Enabled      bool
	Interval     time.Duration
	Window       time.Duration
	MaxFeedPages int
	FeedPageSize int
	Concurrency  int
	CycleTimeout time.Duration
	RunRetention time.Duration
}

type LogConfig struct {
	Level string
	File  string
}

var AppConfig *Config

// Load loads configuration from .env file and environment variables
func Load() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	AppConfig = &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Mode:         getEnv("GIN_MODE", "release"),
			ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 120),
			APIToken:     getEnv("API_TOKEN", ""),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./ghmirror.db"),
		},
		GitHub: GitHubConfig{
			Standard: HostConfig{
				BaseURL:    withTrailingSlash(getEnv("GITHUB_API_URL", "https://api.github.com/")),
				GraphQLURL: getEnv("GITHUB_GRAPHQL_URL", "https://api.github.com/graphql"),
				Token:      getEnv("GITHUB_TOKEN", ""),
			},
			Enterprise: HostConfig{
				BaseURL:    withTrailingSlash(getEnv("GITHUB_ENTERPRISE_API_URL", "")),
				GraphQLURL: getEnv("GITHUB_ENTERPRISE_GRAPHQL_URL", ""),
				Token:      getEnv("GITHUB_ENTERPRISE_TOKEN", ""),
			},
			RequestTimeout: getEnvAsDuration("GITHUB_REQUEST_TIMEOUT", 30*time.Second),
			MaxRetries:     getEnvAsInt("GITHUB_MAX_RETRIES", 3),
		},
		Sync: SyncConfig{
			Enabled:      getEnvAsBool("SYNC_ENABLED", true),
			Interval:     getEnvAsDuration("SYNC_INTERVAL", time.Hour),
			Window:       getEnvAsDuration("SYNC_WINDOW", 365*24*time.Hour),
			MaxFeedPages: getEnvAsInt("SYNC_MAX_FEED_PAGES", 3),
			FeedPageSize: getEnvAsInt("SYNC_FEED_PAGE_SIZE", 100),
			Concurrency:  getEnvAsInt("SYNC_CONCURRENCY", 1),
			CycleTimeout: getEnvAsDuration("SYNC_CYCLE_TIMEOUT", 10*time.Minute),
			RunRetention: getEnvAsDuration("SYNC_RUN_RETENTION", 30*24*time.Hour),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
	}

	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool gets an environment variable as boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration strings ("90s", "1h") or plain seconds
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func withTrailingSlash(u string) string {
	if u == "" || strings.HasSuffix(u, "/") {
		return u
	}
	return u + "/"
}
