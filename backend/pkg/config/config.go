package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/internal/constants"
	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/internal/model"
	apperrors "github.com/chaocai1-lgtm/20260106-glx-demo/backend/pkg/errors"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// App
	Port string
	Env  string

	// Neo4j. An empty URI runs the system in file-only mode.
	Neo4jURI            string
	Neo4jUser           string
	Neo4jPassword       string
	Neo4jDatabase       string
	Neo4jConnectTimeout time.Duration
	Neo4jQueryTimeout   time.Duration

	// Graph data
	Namespace        string
	DocumentPath     string
	InteractionsFile string
	WatchDocument    bool // Reload the document when the file changes
	AutoRebuild      bool // Rebuild the namespace after each reload
	StrictImport     bool // Reject documents with dangling relationships
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getEnv("PORT", constants.DefaultPort),
		Env:                 getEnv("ENV", "development"),
		Neo4jURI:            getEnv("NEO4J_URI", ""),
		Neo4jUser:           getEnv("NEO4J_USER", constants.DefaultNeo4jUser),
		Neo4jPassword:       getEnv("NEO4J_PASSWORD", ""),
		Neo4jDatabase:       getEnv("NEO4J_DATABASE", ""),
		Neo4jConnectTimeout: getEnvDuration("NEO4J_CONNECT_TIMEOUT", constants.DefaultConnectTimeoutSeconds*time.Second),
		Neo4jQueryTimeout:   getEnvDuration("NEO4J_QUERY_TIMEOUT", constants.DefaultQueryTimeoutSeconds*time.Second),
		Namespace:           getEnv("GRAPH_NAMESPACE", constants.DefaultNamespace),
		DocumentPath:        getEnv("GRAPH_DOCUMENT_PATH", constants.DefaultDocumentPath),
		InteractionsFile:    getEnv("INTERACTIONS_FILE", constants.DefaultInteractionsFile),
		WatchDocument:       getEnvBool("GRAPH_WATCH_DOCUMENT", false),
		AutoRebuild:         getEnvBool("GRAPH_AUTO_REBUILD", false),
		StrictImport:        getEnvBool("GRAPH_STRICT_IMPORT", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	if c.Port == "" {
		return apperrors.NewConfigMissingRequired("PORT")
	}
	if c.DocumentPath == "" {
		return apperrors.NewConfigMissingRequired("GRAPH_DOCUMENT_PATH")
	}
	if c.InteractionsFile == "" {
		return apperrors.NewConfigMissingRequired("INTERACTIONS_FILE")
	}
	if err := model.Namespace(c.Namespace).Validate(); err != nil {
		return apperrors.NewConfigValidationFailed("GRAPH_NAMESPACE", err.Error())
	}
	if c.Neo4jURI != "" && c.Neo4jUser == "" {
		return apperrors.NewConfigMissingRequired("NEO4J_USER")
	}
	if c.Neo4jConnectTimeout <= 0 {
		return apperrors.NewConfigValidationFailed("NEO4J_CONNECT_TIMEOUT", "must be positive")
	}
	if c.AutoRebuild && !c.WatchDocument {
		return apperrors.NewConfigValidationFailed("GRAPH_AUTO_REBUILD", "requires GRAPH_WATCH_DOCUMENT")
	}
	return nil
}

// GraphEnabled reports whether a Neo4j backend is configured at all
func (c *Config) GraphEnabled() bool {
	return c.Neo4jURI != ""
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.ParseBool(value); err == nil {
			return result
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("5s") or plain seconds ("5")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
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
