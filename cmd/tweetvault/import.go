package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"tweetvault/pkg/archive"
	"tweetvault/pkg/crawler"
	"tweetvault/pkg/importer"
	"tweetvault/pkg/logger"
	"tweetvault/pkg/twitter"
	"tweetvault/pkg/ui"
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import <export-dir>",
	Short: "Merge posts from a Twitter data export",
	Long: `Merge the posts of a downloaded Twitter account export into the archive.

The export reaches further back than the API timeline, which stops after
about 3200 posts. Posts already archived are skipped. Media referenced by
imported posts is downloaded like during a crawl.

Stored credentials are used to look up post authors when available.`,
	Example: `  # Import an unpacked export
  tweetvault import ~/Downloads/twitter-2024-03-01`,
	Args: cobra.ExactArgs(1),
	Run:  runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVarP(&archiveDir, "archive-dir", "o", "", "archive directory")
	importCmd.Flags().BoolVar(&withMedia, "media", true, "download media of imported posts")
	importCmd.Flags().StringVarP(&accountName, "account", "a", "", "use a specific stored account")
}

func runImport(cmd *cobra.Command, args []string) {
	flags := make(map[string]interface{})
	if archiveDir != "" {
		flags["archive-dir"] = archiveDir
	}
	if cmd.Flags().Changed("media") {
		flags["media"] = withMedia
	}
	cfg := loadConfig(flags)
	log := logger.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	path, err := importer.Locate(args[0])
	if err != nil {
		ui.PrintError("No tweet file in export", err.Error())
		os.Exit(1)
	}
	ui.PrintInfo("Reading", path)

	posts, err := importer.ParseFile(path, log)
	if err != nil {
		ui.PrintError("Failed to read export", err.Error())
		os.Exit(1)
	}

	store, err := archive.NewStore(cfg.Archive.Directory, log)
	if err != nil {
		ui.PrintError("Failed to open archive directory", err.Error())
		os.Exit(1)
	}
	id, err := store.Find()
	if err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			ui.PrintError("No archive found", "run 'tweetvault crawl' first")
		} else {
			ui.PrintError("Failed to find archive", err.Error())
		}
		os.Exit(1)
	}
	doc, err := store.Load(id)
	if err != nil {
		ui.PrintError("Failed to load archive", err.Error())
		os.Exit(1)
	}

	var client twitter.Client
	if _, err := resolveCredentials(cfg, accountName); err == nil && cfg.Twitter.HasCredentials() {
		client = newAPI(cfg, accountName)
	} else {
		log.Info("No credentials, post authors are not looked up")
		cfg.Crawl.TweetProfiles = false
	}

	p, err := openPipeline(ctx, cfg, doc.Profile)
	if err != nil {
		ui.PrintError("Failed to open archive", err.Error())
		os.Exit(1)
	}

	engine := crawler.New(crawler.Dependencies{
		Client:     client,
		Cache:      p.cache,
		Documents:  p.documents,
		Positions:  p.positions,
		Governor:   p.governor,
		Dispatcher: p.dispatcher,
		Metrics:    p.metrics,
		Logger:     log,
	}, crawler.Options{
		Crawl: cfg.Crawl,
		Retry: retryConfig(cfg, log),
	})

	added, importErr := engine.Import(ctx, posts)
	finishDownloads(p.dispatcher, log)
	saveErr := saveArchive(p.documents, p.cache, log)

	if importErr != nil {
		ui.PrintError("Import failed", importErr)
		os.Exit(1)
	}
	if saveErr != nil {
		ui.PrintError("Failed to save archive", saveErr)
		os.Exit(1)
	}

	stats := p.dispatcher.Stats()
	ui.PrintSuccess(fmt.Sprintf("Imported %d of %d posts into the archive of @%s", added, len(posts), doc.Profile.ScreenName))
	if stats.Fetched > 0 || stats.Failed > 0 {
		ui.PrintInfo("Media", fmt.Sprintf("%d downloaded, %d failed", stats.Fetched, stats.Failed))
	}
}
