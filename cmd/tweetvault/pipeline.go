package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"tweetvault/internal/downloader"
	"tweetvault/pkg/archive"
	"tweetvault/pkg/auth"
	"tweetvault/pkg/checkpoint"
	"tweetvault/pkg/config"
	"tweetvault/pkg/logger"
	"tweetvault/pkg/metrics"
	"tweetvault/pkg/ratelimit"
	"tweetvault/pkg/retry"
	"tweetvault/pkg/storage"
	"tweetvault/pkg/twitter"
	"tweetvault/pkg/ui"
)

// pipeline is everything one archive directory needs to run the crawler
type pipeline struct {
	cfg        *config.Config
	log        logger.Logger
	documents  *archive.Store
	positions  *checkpoint.Store
	cache      *archive.Cache
	metrics    *metrics.Metrics
	governor   *ratelimit.Governor
	dispatcher *downloader.Dispatcher
}

// loadConfig resolves the configuration and initializes the global logger.
// Failures exit the process.
func loadConfig(flags map[string]interface{}) *config.Config {
	if logLevel != "" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		ui.PrintError("Failed to initialize logger", err.Error())
		os.Exit(1)
	}
	logger.WithField("version", version).Debug("tweetvault starting")
	return cfg
}

// resolveCredentials fills cfg.Twitter from the credential store unless the
// configuration already carries a complete set
func resolveCredentials(cfg *config.Config, name string) (*auth.Account, error) {
	if name == "" && cfg.Twitter.HasCredentials() {
		logger.Info("Using credentials from configuration")
		return nil, nil
	}

	manager, err := auth.NewManager()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	var account *auth.Account
	if name != "" {
		account, err = manager.Retrieve(name)
	} else {
		account, err = manager.RetrieveDefault()
	}
	if err != nil {
		return nil, err
	}

	account.Apply(&cfg.Twitter)
	logger.WithField("account", account.Name).Info("Using stored credentials")
	return account, nil
}

// newAPI builds the signed client, exiting when no credentials are found
func newAPI(cfg *config.Config, accountName string) *twitter.API {
	if _, err := resolveCredentials(cfg, accountName); err != nil {
		logger.WithError(err).Error("No credentials found")
		ui.PrintError("No Twitter credentials found", err.Error())
		fmt.Println("\nTo store credentials securely, run:")
		fmt.Println("  tweetvault auth login")
		fmt.Println("\nYou can also set environment variables:")
		fmt.Printf("  export %s=...\n", auth.EnvConsumerKey)
		fmt.Printf("  export %s=...\n", auth.EnvConsumerSecret)
		fmt.Printf("  export %s=...\n", auth.EnvAccessToken)
		fmt.Printf("  export %s=...\n", auth.EnvAccessSecret)
		os.Exit(1)
	}

	return twitter.NewAPI(twitter.Credentials{
		ConsumerKey:    cfg.Twitter.ConsumerKey,
		ConsumerSecret: cfg.Twitter.ConsumerSecret,
		AccessToken:    cfg.Twitter.AccessToken,
		AccessSecret:   cfg.Twitter.AccessSecret,
	}, cfg.Twitter.RequestTimeout, logger.GetLogger())
}

// retryConfig maps the rate_limit section onto the backoff policy
func retryConfig(cfg *config.Config, log logger.Logger) retry.Config {
	rc := retry.DefaultConfig()
	rc.MaxRetries = uint64(cfg.RateLimit.MaxRetries)
	if cfg.RateLimit.RetryDelay > 0 {
		rc.InitialInterval = cfg.RateLimit.RetryDelay
	}
	rc.Logger = log
	return rc
}

// openPipeline loads or creates the archive of profile and starts the
// download workers. The caller must Finish the dispatcher.
func openPipeline(ctx context.Context, cfg *config.Config, profile twitter.User) (*pipeline, error) {
	log := logger.GetLogger().WithField("account", profile.ScreenName)

	documents, err := archive.NewStore(cfg.Archive.Directory, log)
	if err != nil {
		return nil, err
	}

	if existing, err := documents.Find(); err == nil && existing != profile.ID {
		return nil, fmt.Errorf("archive directory %s already holds account %d", cfg.Archive.Directory, existing)
	}

	doc, err := documents.Load(profile.ID)
	switch {
	case errors.Is(err, archive.ErrNotFound):
		log.Info("Creating new archive")
		doc = archive.New(profile)
	case err != nil:
		return nil, err
	default:
		doc.Profile = profile
	}

	positions, err := checkpoint.Open(cfg.Archive.Directory, log)
	if err != nil {
		return nil, err
	}

	artifacts, err := storage.New(ctx, cfg.Storage, documents.MediaDir())
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact store: %w", err)
	}

	p := &pipeline{
		cfg:       cfg,
		log:       log,
		documents: documents,
		positions: positions,
		cache:     archive.NewCache(doc),
		metrics:   metrics.New(),
		governor: ratelimit.NewGovernor(ratelimit.Config{
			SafetyMargin: cfg.RateLimit.SafetyMargin,
			MinWait:      cfg.RateLimit.MinWait,
			MaxWait:      cfg.RateLimit.MaxWait,
		}, log),
	}

	if cfg.Metrics.Enabled {
		go metrics.Serve(ctx, cfg.Metrics.Address, p.metrics, log)
	}

	fetcher := twitter.NewMediaClient(cfg.Download.Timeout, retryConfig(cfg, log), log)
	p.dispatcher = downloader.New(fetcher, artifacts, p.cache, downloader.Options{
		Workers:   cfg.Download.Workers,
		QueueSize: cfg.Download.QueueSize,
		Enabled:   cfg.Crawl.Media,
		Limiter:   ratelimit.NewDownloadLimiter(cfg.RateLimit.DownloadsPerSecond, 1),
		Metrics:   p.metrics,
		Logger:    log,
	})
	p.dispatcher.Start(ctx)

	return p, nil
}

// summary builds the end-of-run report
func (p *pipeline) summary(account string, progress *ui.Progress) ui.Summary {
	stats := p.dispatcher.Stats()
	return ui.Summary{
		Account:    account,
		Stats:      p.cache.Stats(),
		Downloaded: int(stats.Fetched),
		Existing:   int(stats.Existing),
		Failed:     int(stats.Failed),
		Elapsed:    progress.Elapsed(),
	}
}
