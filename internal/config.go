package internal

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Dedup backends
const (
	DedupSQLite = "sqlite"
	DedupRedis  = "redis"
	DedupNone   = "none"
)

// Config holds application configuration
type Config struct {
	OutputDir      string `yaml:"output_dir"`
	DefaultWorkers int    `yaml:"workers"`
	DefaultTimeout int    `yaml:"timeout"`
	MaxRetries     int    `yaml:"max_retries"`
	UserAgent      string `yaml:"user_agent"`
	RateLimit      string `yaml:"rate_limit"`
	ProxyURL       string `yaml:"proxy"`

	// Imgur credentials
	ImgurID      string `yaml:"imgur_client_id"`
	ImgurSecret  string `yaml:"imgur_client_secret"`
	ImgurMashape string `yaml:"imgur_mashape_key"`

	// Reddit credentials; empty means read-only access
	RedditID       string `yaml:"reddit_client_id"`
	RedditSecret   string `yaml:"reddit_client_secret"`
	RedditUsername string `yaml:"reddit_username"`
	RedditPassword string `yaml:"reddit_password"`

	// Default text formats for objects that do not set their own
	PostFileFormat    string `yaml:"post_file_format"`
	CommentFileFormat string `yaml:"comment_file_format"`

	// Duplicate ledger
	DedupBackend string `yaml:"dedup_backend"`
	DedupPath    string `yaml:"dedup_path"`
	RedisAddr    string `yaml:"redis_addr"`
	RedisDB      int    `yaml:"redis_db"`

	// Report of outcomes, NDJSON; empty disables it
	ReportFile string `yaml:"report_file"`

	// Logging configuration
	LogLevel    string `yaml:"log_level"`
	EnableDebug bool   `yaml:"debug"`
	QuietMode   bool   `yaml:"quiet"`
	LogFile     string `yaml:"log_file"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		OutputDir:         "downloads",
		DefaultWorkers:    4,
		DefaultTimeout:    30,
		MaxRetries:        1,
		UserAgent:         "postfetch/1.0 (content downloader)",
		PostFileFormat:    DefaultTextFormat,
		CommentFileFormat: DefaultTextFormat,
		DedupBackend:      DedupSQLite,
		DedupPath:         ".postfetch/ledger.db",
		RedisAddr:         "localhost:6379",

		LogLevel:    "info",
		EnableDebug: false,
		QuietMode:   false,
		LogFile:     "", // Empty means stderr
	}
}

// LoadFile overlays values from a YAML file
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() {
	if workers := os.Getenv("POSTFETCH_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil && w > 0 && w <= 32 {
			c.DefaultWorkers = w
		}
	}

	if timeout := os.Getenv("POSTFETCH_TIMEOUT"); timeout != "" {
		if t, err := strconv.Atoi(timeout); err == nil && t > 0 {
			c.DefaultTimeout = t
		}
	}

	if retries := os.Getenv("POSTFETCH_MAX_RETRIES"); retries != "" {
		if r, err := strconv.Atoi(retries); err == nil && r >= 0 {
			c.MaxRetries = r
		}
	}

	c.OutputDir = GetEnvWithDefault("POSTFETCH_OUTPUT", c.OutputDir)
	c.UserAgent = GetEnvWithDefault("POSTFETCH_USER_AGENT", c.UserAgent)
	c.RateLimit = GetEnvWithDefault("POSTFETCH_RATE_LIMIT", c.RateLimit)
	c.ProxyURL = GetEnvWithDefault("POSTFETCH_PROXY", c.ProxyURL)

	c.ImgurID = GetEnvWithDefault("POSTFETCH_IMGUR_CLIENT_ID", c.ImgurID)
	c.ImgurSecret = GetEnvWithDefault("POSTFETCH_IMGUR_CLIENT_SECRET", c.ImgurSecret)
	c.ImgurMashape = GetEnvWithDefault("POSTFETCH_IMGUR_MASHAPE_KEY", c.ImgurMashape)

	c.RedditID = GetEnvWithDefault("REDDIT_CLIENT_ID", c.RedditID)
	c.RedditSecret = GetEnvWithDefault("REDDIT_CLIENT_SECRET", c.RedditSecret)
	c.RedditUsername = GetEnvWithDefault("REDDIT_USERNAME", c.RedditUsername)
	c.RedditPassword = GetEnvWithDefault("REDDIT_PASSWORD", c.RedditPassword)

	c.PostFileFormat = GetEnvWithDefault("POSTFETCH_POST_FORMAT", c.PostFileFormat)
	c.CommentFileFormat = GetEnvWithDefault("POSTFETCH_COMMENT_FORMAT", c.CommentFileFormat)

	c.DedupBackend = GetEnvWithDefault("POSTFETCH_DEDUP", c.DedupBackend)
	c.DedupPath = GetEnvWithDefault("POSTFETCH_DEDUP_PATH", c.DedupPath)
	c.RedisAddr = GetEnvWithDefault("POSTFETCH_REDIS_ADDR", c.RedisAddr)
	c.ReportFile = GetEnvWithDefault("POSTFETCH_REPORT", c.ReportFile)

	// Load logging configuration from environment
	if logLevel := os.Getenv("POSTFETCH_LOG_LEVEL"); logLevel != "" {
		c.LogLevel = logLevel
	}

	if debug := os.Getenv("POSTFETCH_DEBUG"); debug != "" {
		c.EnableDebug = debug == "true" || debug == "1"
	}

	if quiet := os.Getenv("POSTFETCH_QUIET"); quiet != "" {
		c.QuietMode = quiet == "true" || quiet == "1"
	}

	if logFile := os.Getenv("POSTFETCH_LOG_FILE"); logFile != "" {
		c.LogFile = logFile
	}
}

// GetEnvWithDefault returns environment variable value or default
func GetEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// ValidateConfig validates the configuration values
func (c *Config) ValidateConfig() error {
	if c.DefaultWorkers < 1 || c.DefaultWorkers > 32 {
		return NewValidationErrorWithValue("workers", "must be 1-32", c.DefaultWorkers)
	}

	if c.DefaultTimeout < 1 {
		return NewValidationErrorWithValue("timeout", "must be > 0", c.DefaultTimeout)
	}

	if c.MaxRetries < 0 {
		return NewValidationErrorWithValue("max_retries", "must be >= 0", c.MaxRetries)
	}

	if strings.TrimSpace(c.OutputDir) == "" {
		return NewValidationError("output_dir", "cannot be empty")
	}

	switch c.DedupBackend {
	case DedupSQLite, DedupRedis, DedupNone:
	default:
		return NewValidationErrorWithValue("dedup_backend", "unknown backend", c.DedupBackend).
			WithSuggestion("Use sqlite, redis or none")
	}

	return nil
}

// ImgurClientID implements SettingsProvider
func (c *Config) ImgurClientID() string { return c.ImgurID }

// ImgurClientSecret implements SettingsProvider
func (c *Config) ImgurClientSecret() string { return c.ImgurSecret }

// ImgurMashapeKey implements SettingsProvider
func (c *Config) ImgurMashapeKey() string { return c.ImgurMashape }

// DefaultObject builds the significant object used when a post carries none
func (c *Config) DefaultObject(name string, kind ObjectKind) *SignificantObject {
	return &SignificantObject{
		Name:              name,
		Kind:              kind,
		PostFileFormat:    c.PostFileFormat,
		CommentFileFormat: c.CommentFileFormat,
	}
}
