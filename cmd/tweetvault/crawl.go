package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"tweetvault/internal/downloader"
	"tweetvault/pkg/archive"
	"tweetvault/pkg/crawler"
	"tweetvault/pkg/logger"
	"tweetvault/pkg/twitter"
	"tweetvault/pkg/ui"
	"tweetvault/pkg/ui/tui"
)

var (
	// Crawl command flags
	subjectID   int64
	archiveDir  string
	workers     int
	withMedia   bool
	responses   bool
	withLists   bool
	metricsAddr string
	accountName string
	useTUI      bool
)

// crawlCmd represents the crawl command
var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Archive every collection of an account",
	Long: `Walk every enabled collection until the API runs out of pages.

An interrupted crawl resumes from the saved paging positions: run the same
command again and it continues where it stopped. Rate limits suspend the
crawl until the limit window resets.

Without --user the authenticated account is archived. With --user another
account is archived, and mentions, replies and bookmarks are skipped.`,
	Example: `  # Archive your own account
  tweetvault crawl

  # Archive into a specific directory, including replies and lists
  tweetvault crawl --archive-dir ./archive --responses --lists

  # Archive another account by id, without media
  tweetvault crawl --user 783214 --media=false`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runCrawl(cmd, false)
	},
}

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch what is new since the last crawl",
	Long: `Fetch each collection from the newest item down to the first item
that is already archived, then stop.

New items are merged in front of the archived ones in API order.`,
	Example: `  # Update your archive
  tweetvault sync

  # Update with a metrics endpoint for monitoring
  tweetvault sync --metrics-addr :9090`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runCrawl(cmd, true)
	},
}

func init() {
	rootCmd.AddCommand(crawlCmd)
	rootCmd.AddCommand(syncCmd)

	for _, cmd := range []*cobra.Command{crawlCmd, syncCmd} {
		cmd.Flags().Int64VarP(&subjectID, "user", "u", 0, "archive the account with this id instead of your own")
		cmd.Flags().StringVarP(&archiveDir, "archive-dir", "o", "", "archive directory")
		cmd.Flags().IntVar(&workers, "workers", 0, "number of concurrent media downloads")
		cmd.Flags().BoolVar(&withMedia, "media", true, "download images, videos and profile pictures")
		cmd.Flags().BoolVar(&responses, "responses", false, "collect replies to your posts")
		cmd.Flags().BoolVar(&withLists, "lists", false, "collect owned lists and their members")
		cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
		cmd.Flags().StringVarP(&accountName, "account", "a", "", "use a specific stored account")
		cmd.Flags().BoolVar(&useTUI, "tui", false, "use the full-screen terminal display")
	}
}

// crawlFlags collects the flags that were set explicitly
func crawlFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	if archiveDir != "" {
		flags["archive-dir"] = archiveDir
	}
	if workers > 0 {
		flags["workers"] = workers
	}
	if cmd.Flags().Changed("media") {
		flags["media"] = withMedia
	}
	if cmd.Flags().Changed("responses") {
		flags["responses"] = responses
	}
	if cmd.Flags().Changed("lists") {
		flags["lists"] = withLists
	}
	if metricsAddr != "" {
		flags["metrics-addr"] = metricsAddr
	}
	return flags
}

func runCrawl(cmd *cobra.Command, sync bool) {
	cfg := loadConfig(crawlFlags(cmd))
	if useTUI && cfg.Logging.File == "" {
		// console logs would tear the alternate screen
		cfg.Logging.Level = "error"
		_ = logger.Initialize(&cfg.Logging)
	}
	log := logger.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	client := newAPI(cfg, accountName)

	verifyCtx, cancel := context.WithTimeout(ctx, cfg.Twitter.RequestTimeout)
	self, err := client.VerifyCredentials(verifyCtx)
	cancel()
	if err != nil {
		log.WithError(err).Error("Authentication failed")
		ui.PrintError("Authentication failed", err.Error())
		os.Exit(1)
	}

	profile := *self
	custom := subjectID != 0 && subjectID != self.ID
	if custom {
		profile, err = lookupSubject(ctx, client, subjectID)
		if err != nil {
			log.WithError(err).WithField("user", subjectID).Error("Failed to resolve account")
			ui.PrintError("Failed to resolve account", err.Error())
			os.Exit(1)
		}
	}

	if !quiet {
		ui.PrintInfo("Authenticated as", "@"+self.ScreenName)
		ui.PrintInfo("Archiving", "@"+profile.ScreenName)
		ui.PrintInfo("Archive directory", cfg.Archive.Directory)
	}

	p, err := openPipeline(ctx, cfg, profile)
	if err != nil {
		log.WithError(err).Error("Failed to open archive")
		ui.PrintError("Failed to open archive", err.Error())
		os.Exit(1)
	}

	var out io.Writer = os.Stdout
	if quiet || useTUI {
		out = io.Discard
	}
	progress := ui.NewProgress(out, profile.ScreenName)

	var display *tui.TUI
	p.governor.OnWait = func(label string, wait time.Duration) {
		p.metrics.RateLimitWait(label, wait)
		progress.RateLimited(label, wait)
		if display != nil {
			display.RateLimited(label, wait)
		}
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
		Sync:          sync,
		CustomSubject: custom,
		Crawl:         cfg.Crawl,
		Retry:         retryConfig(cfg, log),
	})

	mode := "crawl"
	if sync {
		mode = "sync"
	}
	log.WithFields(map[string]interface{}{
		"mode":    mode,
		"account": profile.ScreenName,
		"run_id":  engine.RunID(),
	}).Info("Starting archive run")

	if useTUI {
		display = tui.NewTUI(profile.ScreenName, engine.Phases(), func() tui.DownloadStats {
			s := p.dispatcher.Stats()
			return tui.DownloadStats{
				Fetched:  s.Fetched,
				Existing: s.Existing,
				Skipped:  s.Skipped,
				Failed:   s.Failed,
				Pending:  p.dispatcher.Pending(),
			}
		})
	}

	events := make(chan crawler.Event)
	done := make(chan error, 1)
	go func() {
		done <- engine.Run(ctx, events)
		close(events)
	}()

	var runErr error
	if display != nil {
		runErr = watchWithTUI(display, events, done, cancelRun, log)
	} else {
		for ev := range events {
			if ev.Kind == crawler.EventPhase {
				progress.PhaseStarted(ev.Phase)
			}
		}
		runErr = <-done
	}

	progress.Finish(runErr)
	if !quiet {
		ui.PrintSummary(os.Stdout, p.summary(profile.ScreenName, progress))
	}

	if notifications {
		if err := ui.NewNotifier().CrawlFinished(profile.ScreenName, runErr); err != nil {
			log.WithError(err).Debug("Failed to send notification")
		}
	}

	switch {
	case errors.Is(runErr, context.Canceled):
		ui.PrintWarning("Interrupted, run the same command again to resume")
		os.Exit(130)
	case runErr != nil:
		log.WithError(runErr).Error("Archive run finished with errors")
		ui.PrintError("Archive run finished with errors", runErr)
		os.Exit(1)
	}

	log.Info("Archive run completed")
	ui.PrintSuccess(fmt.Sprintf("Archive of @%s is up to date", profile.ScreenName))
}

// watchWithTUI forwards run events to display until the run returns. Quitting
// the display cancels the run.
func watchWithTUI(display *tui.TUI, events <-chan crawler.Event, done <-chan error, cancel context.CancelFunc, log logger.Logger) error {
	go func() {
		for ev := range events {
			if ev.Kind == crawler.EventPhase {
				display.PhaseStarted(ev.Phase)
			}
		}
	}()

	uiDone := make(chan error, 1)
	go func() {
		uiDone <- display.Start()
	}()

	select {
	case runErr := <-done:
		display.Finish(runErr)
		time.Sleep(time.Second)
		display.Stop()
		<-uiDone
		return runErr
	case err := <-uiDone:
		if err != nil {
			log.WithError(err).Error("Terminal display failed")
		}
		cancel()
		return <-done
	}
}

// lookupSubject resolves the profile of a custom subject
func lookupSubject(ctx context.Context, client twitter.Client, id int64) (twitter.User, error) {
	batch, err := client.LookupUsers(ctx, []int64{id})
	if err != nil {
		return twitter.User{}, err
	}
	for _, u := range batch.Users {
		if u.ID == id {
			return u, nil
		}
	}
	return twitter.User{}, fmt.Errorf("user %d not found", id)
}

// finishDownloads waits for queued media and logs a failed shutdown
func finishDownloads(d *downloader.Dispatcher, log logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := d.Finish(ctx); err != nil && !errors.Is(err, downloader.ErrClosed) {
		log.WithError(err).Warn("Media downloads did not finish")
	}
}

// saveArchive writes the document, logging a failure
func saveArchive(store *archive.Store, cache *archive.Cache, log logger.Logger) error {
	if err := store.Save(cache); err != nil {
		log.WithError(err).Error("Failed to save archive")
		return err
	}
	return nil
}
