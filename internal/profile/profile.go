package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the configuration to start main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where circle stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string

	// Search limits
	TagSearchLimit   int // CIRCLE_TAG_SEARCH_LIMIT (default: 50, hard cap)
	SearchMaxResults int // CIRCLE_SEARCH_MAX_RESULTS (default: 100)

	// Classifier configuration
	AIClassifierEnabled bool   // CIRCLE_AI_CLASSIFIER_ENABLED
	AIAPIKey            string // CIRCLE_AI_API_KEY
	AIBaseURL           string // CIRCLE_AI_BASE_URL (default: https://api.deepseek.com)
	AIModel             string // CIRCLE_AI_MODEL (default: deepseek-chat)

	// Rate limit for write endpoints, requests per second per client
	WriteRateLimit int // CIRCLE_WRITE_RATE_LIMIT (default: 10)
}

const (
	DefaultTagSearchLimit   = 50
	DefaultSearchMaxResults = 100
	DefaultWriteRateLimit   = 10
)

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIClassifierEnabled returns true if the LLM classifier is enabled and has credentials.
func (p *Profile) IsAIClassifierEnabled() bool {
	return p.AIClassifierEnabled && p.AIAPIKey != ""
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnvOrDefault parses a positive integer environment variable.
// Malformed or non-positive values fall back to the default.
func getIntEnvOrDefault(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		slog.Warn("ignoring invalid integer env value", slog.String("key", key), slog.String("value", raw))
		return defaultValue
	}
	return v
}

// FromEnv loads the optional settings from CIRCLE_* environment variables.
func (p *Profile) FromEnv() {
	p.TagSearchLimit = getIntEnvOrDefault("CIRCLE_TAG_SEARCH_LIMIT", DefaultTagSearchLimit)
	p.SearchMaxResults = getIntEnvOrDefault("CIRCLE_SEARCH_MAX_RESULTS", DefaultSearchMaxResults)
	p.WriteRateLimit = getIntEnvOrDefault("CIRCLE_WRITE_RATE_LIMIT", DefaultWriteRateLimit)

	p.AIClassifierEnabled = os.Getenv("CIRCLE_AI_CLASSIFIER_ENABLED") == "true"
	p.AIAPIKey = os.Getenv("CIRCLE_AI_API_KEY")
	p.AIBaseURL = getEnvOrDefault("CIRCLE_AI_BASE_URL", "https://api.deepseek.com")
	p.AIModel = getEnvOrDefault("CIRCLE_AI_MODEL", "deepseek-chat")
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}
	if p.Driver == "" {
		p.Driver = "sqlite"
	}
	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported driver %q: only 'sqlite' and 'postgres' are supported", p.Driver)
	}

	if p.TagSearchLimit <= 0 || p.TagSearchLimit > DefaultTagSearchLimit {
		p.TagSearchLimit = DefaultTagSearchLimit
	}
	if p.SearchMaxResults <= 0 {
		p.SearchMaxResults = DefaultSearchMaxResults
	}
	if p.WriteRateLimit <= 0 {
		p.WriteRateLimit = DefaultWriteRateLimit
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "circle")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/circle"
		}
	}

	if p.Driver == "postgres" {
		if p.DSN == "" {
			return errors.New("dsn is required for postgres driver")
		}
		return nil
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check dsn", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.DSN == "" {
		dbFile := fmt.Sprintf("circle_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	return nil
}
