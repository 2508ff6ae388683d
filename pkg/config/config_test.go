package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.True(t, cfg.Crawl.Tweets)
	assert.False(t, cfg.Crawl.TweetResponses)
	assert.True(t, cfg.Crawl.TweetProfiles)
	assert.True(t, cfg.Crawl.Mentions)
	assert.True(t, cfg.Crawl.Followers)
	assert.True(t, cfg.Crawl.Follows)
	assert.False(t, cfg.Crawl.Lists)
	assert.True(t, cfg.Crawl.Media)
	assert.True(t, cfg.Crawl.Likes)

	assert.Equal(t, 10*time.Second, cfg.RateLimit.SafetyMargin)
	assert.Equal(t, 128, cfg.Download.QueueSize)
	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.NoError(t, cfg.Validate())
}

func TestDefaultArchiveDirHonoursXDG(t *testing.T) {
	if runtime.GOOS == "darwin" || runtime.GOOS == "windows" {
		t.Skip("XDG_DATA_HOME is only consulted on unix-like systems")
	}
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)

	assert.Equal(t, filepath.Join(dir, "tweetvault", "archive"), DefaultArchiveDir())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TWEETVAULT_CONSUMER_KEY", "ck")
	t.Setenv("TWEETVAULT_CONSUMER_SECRET", "cs")
	t.Setenv("TWEETVAULT_ACCESS_TOKEN", "at")
	t.Setenv("TWEETVAULT_ACCESS_SECRET", "as")
	t.Setenv("TWEETVAULT_ARCHIVE_DIR", "/tmp/vault")
	t.Setenv("TWEETVAULT_DOWNLOAD_WORKERS", "6")
	t.Setenv("TWEETVAULT_MEDIA", "false")
	t.Setenv("TWEETVAULT_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.True(t, cfg.Twitter.HasCredentials())
	assert.Equal(t, "/tmp/vault", cfg.Archive.Directory)
	assert.Equal(t, 6, cfg.Download.Workers)
	assert.False(t, cfg.Crawl.Media)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromEnvRejectsBadNumbers(t *testing.T) {
	t.Setenv("TWEETVAULT_DOWNLOAD_WORKERS", "many")

	cfg := DefaultConfig()
	err := cfg.LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TWEETVAULT_DOWNLOAD_WORKERS")
	assert.Equal(t, 4, cfg.Download.Workers)
}

func TestLoadFromFile(t *testing.T) {
	t.Run("valid yaml file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := `
twitter:
  consumer_key: file_ck
  request_timeout: 45s

crawl:
  lists: true
  likes: false
  reply_pages: 2

rate_limit:
  safety_margin: 5s
  max_retries: 7

download:
  workers: 8
  queue_size: 64
  timeout: 2m

storage:
  backend: s3
  bucket: media

logging:
  level: warn
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		cfg := DefaultConfig()
		require.NoError(t, cfg.LoadFromFile(path))

		assert.Equal(t, "file_ck", cfg.Twitter.ConsumerKey)
		assert.Equal(t, 45*time.Second, cfg.Twitter.RequestTimeout)
		assert.True(t, cfg.Crawl.Lists)
		assert.False(t, cfg.Crawl.Likes)
		assert.True(t, cfg.Crawl.Tweets, "unset keys keep their defaults")
		assert.Equal(t, 2, cfg.Crawl.ReplyPages)
		assert.Equal(t, 5*time.Second, cfg.RateLimit.SafetyMargin)
		assert.Equal(t, 7, cfg.RateLimit.MaxRetries)
		assert.Equal(t, 8, cfg.Download.Workers)
		assert.Equal(t, 64, cfg.Download.QueueSize)
		assert.Equal(t, 2*time.Minute, cfg.Download.Timeout)
		assert.Equal(t, "s3", cfg.Storage.Backend)
		assert.Equal(t, "warn", cfg.Logging.Level)
	})

	t.Run("missing file", func(t *testing.T) {
		cfg := DefaultConfig()
		err := cfg.LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("crawl: [unterminated"), 0644))

		cfg := DefaultConfig()
		assert.Error(t, cfg.LoadFromFile(path))
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"no archive dir", func(c *Config) { c.Archive.Directory = "" }, "archive directory"},
		{"zero workers", func(c *Config) { c.Download.Workers = 0 }, "workers must be positive"},
		{"zero queue", func(c *Config) { c.Download.QueueSize = 0 }, "queue size"},
		{"min above max", func(c *Config) { c.RateLimit.MinWait = time.Hour }, "min wait"},
		{"s3 without bucket", func(c *Config) { c.Storage.Backend = "s3" }, "bucket"},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "ftp" }, "unknown storage backend"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subdir", "config.yaml")

	cfg := DefaultConfig()
	cfg.Crawl.Lists = true
	cfg.Download.Workers = 9
	require.NoError(t, cfg.Save(path))

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.True(t, loaded.Crawl.Lists)
	assert.Equal(t, 9, loaded.Download.Workers)
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"archive-dir":  "/flag/archive",
		"workers":      2,
		"media":        false,
		"responses":    true,
		"log-level":    "error",
		"metrics-addr": ":9200",
	})

	assert.Equal(t, "/flag/archive", cfg.Archive.Directory)
	assert.Equal(t, 2, cfg.Download.Workers)
	assert.False(t, cfg.Crawl.Media)
	assert.True(t, cfg.Crawl.TweetResponses)
	assert.Equal(t, "error", cfg.Logging.Level)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":9200", cfg.Metrics.Address)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("download:\n  workers: 3\nlogging:\n  level: warn\n"), 0644))

	t.Setenv("HOME", dir)
	t.Setenv("TWEETVAULT_DOWNLOAD_WORKERS", "5")

	cfg, err := Load(path, map[string]interface{}{"log-level": "debug"})
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Download.Workers, "env overrides file")
	assert.Equal(t, "debug", cfg.Logging.Level, "flags override file")
}
