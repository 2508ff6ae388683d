package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "TWEETVAULT_"

// Config holds all configuration options for tweetvault
type Config struct {
	// Twitter API credentials
	Twitter TwitterConfig `yaml:"twitter" json:"twitter"`

	// Which collections to archive
	Crawl CrawlConfig `yaml:"crawl" json:"crawl"`

	// Rate limit governor and retry configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Archive location
	Archive ArchiveConfig `yaml:"archive" json:"archive"`

	// Media download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Artifact storage backend
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Prometheus metrics
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// TwitterConfig holds the OAuth 1.0a application and user tokens
type TwitterConfig struct {
	ConsumerKey    string        `yaml:"consumer_key" json:"consumer_key"`
	ConsumerSecret string        `yaml:"consumer_secret" json:"consumer_secret"`
	AccessToken    string        `yaml:"access_token" json:"access_token"`
	AccessSecret   string        `yaml:"access_secret" json:"access_secret"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// HasCredentials reports whether all four OAuth values are present
func (t TwitterConfig) HasCredentials() bool {
	return t.ConsumerKey != "" && t.ConsumerSecret != "" && t.AccessToken != "" && t.AccessSecret != ""
}

// CrawlConfig is the declarative set of collections to archive
type CrawlConfig struct {
	Tweets         bool `yaml:"tweets" json:"tweets"`
	TweetResponses bool `yaml:"tweet_responses" json:"tweet_responses"`
	TweetProfiles  bool `yaml:"tweet_profiles" json:"tweet_profiles"`
	Mentions       bool `yaml:"mentions" json:"mentions"`
	Followers      bool `yaml:"followers" json:"followers"`
	Follows        bool `yaml:"follows" json:"follows"`
	Lists          bool `yaml:"lists" json:"lists"`
	Bookmarks      bool `yaml:"bookmarks" json:"bookmarks"`
	Likes          bool `yaml:"likes" json:"likes"`
	Media          bool `yaml:"media" json:"media"`
	ReplyPages     int  `yaml:"reply_pages" json:"reply_pages"`
}

// RateLimitConfig holds the governor and retry settings
type RateLimitConfig struct {
	SafetyMargin       time.Duration `yaml:"safety_margin" json:"safety_margin"`
	MinWait            time.Duration `yaml:"min_wait" json:"min_wait"`
	MaxWait            time.Duration `yaml:"max_wait" json:"max_wait"`
	MaxRetries         int           `yaml:"max_retries" json:"max_retries"`
	RetryDelay         time.Duration `yaml:"retry_delay" json:"retry_delay"`
	DownloadsPerSecond float64       `yaml:"downloads_per_second" json:"downloads_per_second"`
}

// ArchiveConfig holds the archive directory
type ArchiveConfig struct {
	Directory string `yaml:"directory" json:"directory"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	Workers   int           `yaml:"workers" json:"workers"`
	QueueSize int           `yaml:"queue_size" json:"queue_size"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
}

// StorageConfig selects where media artifacts are written
type StorageConfig struct {
	Backend   string `yaml:"backend" json:"backend"`
	Bucket    string `yaml:"bucket" json:"bucket"`
	Endpoint  string `yaml:"endpoint" json:"endpoint"`
	Region    string `yaml:"region" json:"region"`
	AccessKey string `yaml:"access_key" json:"access_key"`
	SecretKey string `yaml:"secret_key" json:"secret_key"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Address string `yaml:"address" json:"address"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Twitter: TwitterConfig{
			RequestTimeout: 30 * time.Second,
		},
		Crawl: CrawlConfig{
			Tweets:         true,
			TweetResponses: false,
			TweetProfiles:  true,
			Mentions:       true,
			Followers:      true,
			Follows:        true,
			Lists:          false,
			Bookmarks:      true,
			Likes:          true,
			Media:          true,
			ReplyPages:     5,
		},
		RateLimit: RateLimitConfig{
			SafetyMargin:       10 * time.Second,
			MinWait:            1 * time.Second,
			MaxWait:            16 * time.Minute,
			MaxRetries:         3,
			RetryDelay:         2 * time.Second,
			DownloadsPerSecond: 0,
		},
		Archive: ArchiveConfig{
			Directory: DefaultArchiveDir(),
		},
		Download: DownloadConfig{
			Workers:   4,
			QueueSize: 128,
			Timeout:   60 * time.Second,
		},
		Storage: StorageConfig{
			Backend: "local",
			Region:  "us-east-1",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: ":9090",
		},
	}
}

// DefaultArchiveDir returns the platform data directory for archives
func DefaultArchiveDir() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		base = filepath.Join(home, "Library", "Application Support")
	case "windows":
		base = os.Getenv("APPDATA")
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			base = xdg
		} else {
			home, _ := os.UserHomeDir()
			base = filepath.Join(home, ".local", "share")
		}
	}

	return filepath.Join(base, "tweetvault", "archive")
}

// LoadFromEnv loads configuration from TWEETVAULT_* environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	setString := func(name string, dst *string) {
		if v := os.Getenv(envPrefix + name); v != "" {
			*dst = v
		}
	}
	setInt := func(name string, dst *int) {
		if v := os.Getenv(envPrefix + name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	setBool := func(name string, dst *bool) {
		if v := os.Getenv(envPrefix + name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = b
		}
	}

	setString("CONSUMER_KEY", &c.Twitter.ConsumerKey)
	setString("CONSUMER_SECRET", &c.Twitter.ConsumerSecret)
	setString("ACCESS_TOKEN", &c.Twitter.AccessToken)
	setString("ACCESS_SECRET", &c.Twitter.AccessSecret)

	setString("ARCHIVE_DIR", &c.Archive.Directory)
	setInt("DOWNLOAD_WORKERS", &c.Download.Workers)
	setBool("MEDIA", &c.Crawl.Media)

	setString("STORAGE_BACKEND", &c.Storage.Backend)
	setString("S3_BUCKET", &c.Storage.Bucket)
	setString("S3_ENDPOINT", &c.Storage.Endpoint)
	setString("S3_ACCESS_KEY", &c.Storage.AccessKey)
	setString("S3_SECRET_KEY", &c.Storage.SecretKey)

	setString("LOG_LEVEL", &c.Logging.Level)
	setBool("METRICS_ENABLED", &c.Metrics.Enabled)
	setString("METRICS_ADDRESS", &c.Metrics.Address)

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// FindConfigFile searches for a config file in standard locations
func FindConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".tweetvault.yaml",
		".tweetvault.yml",
		filepath.Join(home, ".config", "tweetvault", "config.yaml"),
		filepath.Join(home, ".config", "tweetvault", "config.yml"),
		filepath.Join(home, ".tweetvault.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// DefaultConfigPath is where `config init` writes a new file
func DefaultConfigPath() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "tweetvault", "config.yaml")
}

// Validate checks if the configuration is valid. Credentials are checked
// separately because they may come from the credential store.
func (c *Config) Validate() error {
	var errs []error

	if c.Archive.Directory == "" {
		errs = append(errs, errors.New("archive directory is required"))
	}

	if c.RateLimit.SafetyMargin < 0 {
		errs = append(errs, errors.New("rate limit safety margin cannot be negative"))
	}
	if c.RateLimit.MaxWait > 0 && c.RateLimit.MinWait > c.RateLimit.MaxWait {
		errs = append(errs, errors.New("rate limit min wait exceeds max wait"))
	}
	if c.RateLimit.MaxRetries < 0 {
		errs = append(errs, errors.New("max retries cannot be negative"))
	}
	if c.RateLimit.DownloadsPerSecond < 0 {
		errs = append(errs, errors.New("downloads per second cannot be negative"))
	}

	if c.Download.Workers <= 0 {
		errs = append(errs, errors.New("download workers must be positive"))
	}
	if c.Download.Workers > 32 {
		errs = append(errs, errors.New("download workers should not exceed 32"))
	}
	if c.Download.QueueSize <= 0 {
		errs = append(errs, errors.New("download queue size must be positive"))
	}
	if c.Download.Timeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}

	switch strings.ToLower(c.Storage.Backend) {
	case "local", "":
	case "s3":
		if c.Storage.Bucket == "" {
			errs = append(errs, errors.New("s3 storage requires a bucket"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.Storage.Backend))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if c.Metrics.Enabled && c.Metrics.Address == "" {
		errs = append(errs, errors.New("metrics address is required when metrics are enabled"))
	}

	return errors.Join(errs...)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if dir, ok := flags["archive-dir"].(string); ok && dir != "" {
		c.Archive.Directory = dir
	}
	if workers, ok := flags["workers"].(int); ok && workers > 0 {
		c.Download.Workers = workers
	}
	if media, ok := flags["media"].(bool); ok {
		c.Crawl.Media = media
	}
	if responses, ok := flags["responses"].(bool); ok {
		c.Crawl.TweetResponses = responses
	}
	if lists, ok := flags["lists"].(bool); ok {
		c.Crawl.Lists = lists
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if addr, ok := flags["metrics-addr"].(string); ok && addr != "" {
		c.Metrics.Enabled = true
		c.Metrics.Address = addr
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: flags > environment (.env included) > config file > defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".tweetvault.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
