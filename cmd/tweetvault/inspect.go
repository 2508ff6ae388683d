package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"tweetvault/pkg/archive"
	"tweetvault/pkg/checkpoint"
	"tweetvault/pkg/logger"
	"tweetvault/pkg/ui"
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show what an archive holds",
	Long: `Print per-collection counts of the archive in the archive directory,
and the paging positions an interrupted run left behind.`,
	Args: cobra.NoArgs,
	Run:  runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringVarP(&archiveDir, "archive-dir", "o", "", "archive directory")
}

func runInspect(cmd *cobra.Command, args []string) {
	flags := make(map[string]interface{})
	if archiveDir != "" {
		flags["archive-dir"] = archiveDir
	}
	cfg := loadConfig(flags)
	log := logger.GetLogger()

	store, err := archive.NewStore(cfg.Archive.Directory, log)
	if err != nil {
		ui.PrintError("Failed to open archive directory", err.Error())
		os.Exit(1)
	}

	id, err := store.Find()
	if errors.Is(err, archive.ErrNotFound) {
		ui.PrintWarning("No archive found in " + cfg.Archive.Directory)
		fmt.Println("\nCreate one with:")
		fmt.Println("  tweetvault crawl")
		return
	}
	if err != nil {
		ui.PrintError("Failed to find archive", err.Error())
		os.Exit(1)
	}

	doc, err := store.Load(id)
	if err != nil {
		ui.PrintError("Failed to load archive", err.Error())
		os.Exit(1)
	}

	ui.PrintInfo("Archive", store.Path(id))
	ui.PrintSummary(os.Stdout, ui.Summary{
		Account: doc.Profile.ScreenName,
		Stats:   doc.Stats(),
	})

	positions, err := checkpoint.Open(cfg.Archive.Directory, log)
	if err != nil {
		ui.PrintError("Failed to read paging positions", err.Error())
		os.Exit(1)
	}
	keys := positions.Keys()
	if len(keys) == 0 {
		fmt.Println()
		ui.PrintSuccess("No interrupted phases")
		return
	}

	fmt.Println()
	ui.PrintHighlight("Interrupted phases (resumed by the next run)")
	for _, key := range keys {
		position, _ := positions.Position(key)
		fmt.Printf("  %-24s %s\n", key, position)
	}
	if hasBoundary(keys) {
		fmt.Println("\nPhases with a boundary were interrupted during a sync and finish as one.")
	}
}

func hasBoundary(keys []string) bool {
	for _, key := range keys {
		if strings.HasSuffix(key, ":boundary") {
			return true
		}
	}
	return false
}
