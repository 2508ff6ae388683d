package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"tweetvault/pkg/config"
	"tweetvault/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage tweetvault configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (TWEETVAULT_*, .env files included)
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the defaults",
	Long: `Write every option with its default value to a configuration file.

The file is created at ~/.config/tweetvault/config.yaml unless a different
path is given with the --config flag.`,
	Run: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after merging all sources.

Credentials are masked.`,
	Run: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Run:   runConfigValidate,
}

// pathCmd represents the config path command
var pathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file in use",
	Run:   runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
	configCmd.AddCommand(pathCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	configPath := configFile
	if configPath == "" {
		configPath = config.DefaultConfigPath()
	}

	if _, err := os.Stat(configPath); err == nil {
		ui.PrintError("Configuration file already exists", configPath)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", configPath)
		os.Exit(1)
	}

	if err := config.DefaultConfig().Save(configPath); err != nil {
		ui.PrintError("Failed to create configuration file", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Store your API credentials with 'tweetvault auth login'")
	fmt.Println("2. Pick the collections to archive in the crawl section")
	fmt.Println("3. Run 'tweetvault config validate' to check the configuration")
	fmt.Println("4. Start archiving with 'tweetvault crawl'")
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	display := *cfg
	display.Twitter.ConsumerSecret = mask(display.Twitter.ConsumerSecret)
	display.Twitter.AccessToken = mask(display.Twitter.AccessToken)
	display.Twitter.AccessSecret = mask(display.Twitter.AccessSecret)
	display.Storage.SecretKey = mask(display.Storage.SecretKey)

	data, err := yaml.Marshal(&display)
	if err != nil {
		ui.PrintError("Failed to format configuration", err.Error())
		os.Exit(1)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))

	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables (TWEETVAULT_*)")
	if path := configPathInUse(); path != "" {
		fmt.Printf("3. Configuration file: %s\n", path)
	} else {
		fmt.Println("3. Configuration file: (none found)")
	}
	fmt.Println("4. Default values")
}

func runConfigValidate(cmd *cobra.Command, args []string) {
	if path := configPathInUse(); path != "" {
		ui.PrintInfo("Validating configuration", path)
	}

	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Configuration validation failed", err.Error())
		os.Exit(1)
	}

	if !cfg.Twitter.HasCredentials() {
		ui.PrintWarning("No credentials in the configuration, the credential store will be used")
	}

	ui.PrintSuccess("Configuration is valid")

	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Archive directory: %s\n", cfg.Archive.Directory)
	fmt.Printf("  Storage backend: %s\n", cfg.Storage.Backend)
	fmt.Printf("  Download workers: %d\n", cfg.Download.Workers)
	fmt.Printf("  Media downloads: %t\n", cfg.Crawl.Media)
	fmt.Printf("  Replies: %t\n", cfg.Crawl.TweetResponses)
	fmt.Printf("  Lists: %t\n", cfg.Crawl.Lists)
	fmt.Printf("  Rate limit safety margin: %s\n", cfg.RateLimit.SafetyMargin)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
}

func runConfigPath(cmd *cobra.Command, args []string) {
	if path := configPathInUse(); path != "" {
		fmt.Println(path)
		return
	}
	ui.PrintWarning("No configuration file found, defaults are used")
	fmt.Printf("Create one at %s with 'tweetvault config init'\n", config.DefaultConfigPath())
}

func configPathInUse() string {
	if configFile != "" {
		return configFile
	}
	return config.FindConfigFile()
}

func mask(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) > 8:
		return s[:4] + "..." + s[len(s)-4:]
	default:
		return "***"
	}
}
