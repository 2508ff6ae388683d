package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"tweetvault/pkg/auth"
	"tweetvault/pkg/logger"
	"tweetvault/pkg/twitter"
	"tweetvault/pkg/ui"
)

var skipVerify bool

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Twitter API credentials",
	Long: `Manage stored Twitter API credentials securely.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (read only)

Never share your credentials or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [name]",
	Short: "Store Twitter API credentials securely",
	Long: `Store the four OAuth values of a Twitter developer app.

You will be prompted for:
  - Consumer key (API key)
  - Consumer secret (API key secret)
  - Access token
  - Access token secret

The credentials are checked against the API before they are stored.`,
	Example: `  # Interactive login
  tweetvault auth login

  # Store a second set under a name
  tweetvault auth login work`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout [name]",
	Short: "Remove stored credentials",
	Args:  cobra.MaximumNArgs(1),
	Run:   runLogout,
}

// listCmd represents the auth list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored accounts",
	Long:  `List all stored credential sets with the secrets masked.`,
	Run:   runList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)

	loginCmd.Flags().BoolVar(&skipVerify, "no-verify", false, "store without checking the credentials against the API")
}

func runLogin(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	name := auth.DefaultName
	if len(args) > 0 {
		name = strings.TrimSpace(args[0])
	}

	reader := bufio.NewReader(os.Stdin)

	auth.ShowSetupGuide(os.Stdout)
	fmt.Println()

	if existing, _ := manager.Retrieve(name); existing != nil {
		fmt.Printf("Credentials '%s' already exist. Replace them? (y/N): ", name)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}
	}

	fmt.Print("Consumer key: ")
	consumerKey, _ := reader.ReadString('\n')
	consumerKey = strings.TrimSpace(consumerKey)

	fmt.Print("Consumer secret: ")
	consumerSecret, err := readPassword()
	if err != nil {
		ui.PrintError("Failed to read consumer secret", err.Error())
		os.Exit(1)
	}

	fmt.Print("\nAccess token: ")
	accessToken, _ := reader.ReadString('\n')
	accessToken = strings.TrimSpace(accessToken)

	fmt.Print("Access token secret: ")
	accessSecret, err := readPassword()
	if err != nil {
		ui.PrintError("Failed to read access token secret", err.Error())
		os.Exit(1)
	}
	fmt.Println()

	account := &auth.Account{
		Name:           name,
		ConsumerKey:    consumerKey,
		ConsumerSecret: consumerSecret,
		AccessToken:    accessToken,
		AccessSecret:   accessSecret,
	}
	if err := account.Validate(); err != nil {
		ui.PrintError("Incomplete credentials", err.Error())
		os.Exit(1)
	}

	if !skipVerify {
		fmt.Println("\nChecking credentials...")
		user, err := verifyAccount(account)
		if err != nil {
			ui.PrintError("The API rejected these credentials", err.Error())
			fmt.Println("\nStore them anyway with 'tweetvault auth login --no-verify'.")
			os.Exit(1)
		}
		account.UserID = user.ID
		account.ScreenName = user.ScreenName
	}

	if err := manager.Store(account); err != nil {
		ui.PrintError("Failed to store credentials", err.Error())
		os.Exit(1)
	}

	label := name
	if account.ScreenName != "" {
		label = fmt.Sprintf("%s (@%s)", name, account.ScreenName)
	}
	ui.PrintSuccess("Credentials saved: " + label)

	fmt.Println("\nStart an archive with:")
	fmt.Println("  tweetvault crawl")
	if name != auth.DefaultName {
		fmt.Printf("  tweetvault crawl --account %s\n", name)
	}
	fmt.Println("\nNever share your credentials or config files!")
}

func verifyAccount(account *auth.Account) (*twitter.User, error) {
	client := twitter.NewAPI(twitter.Credentials{
		ConsumerKey:    account.ConsumerKey,
		ConsumerSecret: account.ConsumerSecret,
		AccessToken:    account.AccessToken,
		AccessSecret:   account.AccessSecret,
	}, 30*time.Second, logger.GetLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return client.VerifyCredentials(ctx)
}

func runLogout(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	name := auth.DefaultName
	if len(args) > 0 {
		name = args[0]
	} else {
		reader := bufio.NewReader(os.Stdin)
		fmt.Printf("Remove credentials '%s'? (y/N): ", name)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}
	}

	if err := manager.Delete(name); err != nil {
		ui.PrintError("Failed to remove credentials", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess("Credentials removed: " + name)
}

func runList(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	accounts, err := manager.List()
	if err != nil {
		ui.PrintError("Failed to list accounts", err.Error())
		os.Exit(1)
	}

	if len(accounts) == 0 {
		ui.PrintInfo("No stored accounts", "Use 'tweetvault auth login' to add one")
		return
	}

	ui.PrintHighlight("Stored Accounts")
	fmt.Println()

	for i, account := range accounts {
		sanitized := auth.SanitizeAccount(account)
		fmt.Printf("%d. Name: %s\n", i+1, sanitized.Name)
		if sanitized.ScreenName != "" {
			fmt.Printf("   Account: @%s (%d)\n", sanitized.ScreenName, sanitized.UserID)
		}
		fmt.Printf("   Consumer Key: %s\n", sanitized.ConsumerKey)
		fmt.Printf("   Consumer Secret: %s\n", sanitized.ConsumerSecret)
		fmt.Printf("   Access Token: %s\n", sanitized.AccessToken)
		fmt.Printf("   Access Secret: %s\n", sanitized.AccessSecret)
		if !sanitized.LastModified.IsZero() {
			fmt.Printf("   Last Modified: %s\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
		}
		fmt.Println()
	}
}

// readPassword reads a line without echoing it
func readPassword() (string, error) {
	password, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(password)), nil
}
