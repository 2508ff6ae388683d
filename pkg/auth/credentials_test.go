package auth

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tweetvault/pkg/config"
)

func testAccount(name string) *Account {
	return &Account{
		Name:           name,
		ConsumerKey:    "consumer_key_1234",
		ConsumerSecret: "consumer_secret_5678",
		AccessToken:    "access_token_abcdef",
		AccessSecret:   "access_secret_ghijkl",
		UserID:         42,
		ScreenName:     "alice",
	}
}

func TestCredentialManager(t *testing.T) {
	mockStore := NewMockStore()
	manager := NewManagerWithStores(mockStore)

	account := testAccount("")
	if err := manager.Store(account); err != nil {
		t.Fatalf("Failed to store account: %v", err)
	}
	if account.Name != DefaultName {
		t.Errorf("Name = %q, want %q", account.Name, DefaultName)
	}
	if account.LastModified.IsZero() {
		t.Error("LastModified should be set on store")
	}

	retrieved, err := manager.Retrieve("")
	if err != nil {
		t.Fatalf("Failed to retrieve account: %v", err)
	}
	if retrieved.AccessToken != account.AccessToken {
		t.Errorf("AccessToken mismatch: got %s, want %s", retrieved.AccessToken, account.AccessToken)
	}
	if retrieved.ScreenName != "alice" {
		t.Errorf("ScreenName mismatch: got %s", retrieved.ScreenName)
	}

	def, err := manager.RetrieveDefault()
	if err != nil {
		t.Fatalf("Failed to retrieve default account: %v", err)
	}
	if def.Name != DefaultName {
		t.Errorf("Default account name = %q", def.Name)
	}

	if err := manager.Delete(DefaultName); err != nil {
		t.Errorf("Failed to delete account: %v", err)
	}
	if _, err := manager.Retrieve(DefaultName); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound, got %v", err)
	}
	if mockStore.Count() != 0 {
		t.Errorf("Expected 0 accounts after deletion, got %d", mockStore.Count())
	}
}

func TestManagerRejectsIncompleteCredentials(t *testing.T) {
	manager := NewManagerWithStores(NewMockStore())

	incomplete := testAccount("work")
	incomplete.AccessSecret = ""

	if err := manager.Store(incomplete); err == nil {
		t.Error("Expected an error for a missing access secret")
	}
}

func TestManagerFallsBackToNextStore(t *testing.T) {
	broken := NewMockStore()
	broken.StoreError = fmt.Errorf("keychain locked")
	fallback := NewMockStore()

	manager := NewManagerWithStores(broken, fallback)
	if err := manager.Store(testAccount("work")); err != nil {
		t.Fatalf("Store should fall back: %v", err)
	}
	if !fallback.Exists("work") {
		t.Error("Fallback store should hold the account")
	}
}

func TestManagerListPrefersNewest(t *testing.T) {
	older := NewMockStore()
	newer := NewMockStore()

	a := testAccount("work")
	a.LastModified = time.Now().Add(-time.Hour)
	a.ScreenName = "old"
	_ = older.Store(a)

	b := testAccount("work")
	b.LastModified = time.Now()
	b.ScreenName = "new"
	_ = newer.Store(b)

	accounts, err := NewManagerWithStores(older, newer).List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(accounts) != 1 {
		t.Fatalf("Expected 1 account, got %d", len(accounts))
	}
	if accounts[0].ScreenName != "new" {
		t.Errorf("Expected the newest entry, got %s", accounts[0].ScreenName)
	}
}

func TestSanitizeAccount(t *testing.T) {
	account := testAccount("work")
	sanitized := SanitizeAccount(account)

	if sanitized.AccessSecret == account.AccessSecret {
		t.Error("AccessSecret should be masked")
	}
	if sanitized.ConsumerSecret == account.ConsumerSecret {
		t.Error("ConsumerSecret should be masked")
	}
	if sanitized.ConsumerKey != account.ConsumerKey {
		t.Error("ConsumerKey should not be masked")
	}
	if got := maskString("short"); got != "********" {
		t.Errorf("maskString(short) = %q", got)
	}
	if SanitizeAccount(nil) != nil {
		t.Error("SanitizeAccount(nil) should be nil")
	}
}

func TestAccountApply(t *testing.T) {
	var cfg config.TwitterConfig
	testAccount("work").Apply(&cfg)

	if !cfg.HasCredentials() {
		t.Error("Applied config should carry all four values")
	}
}

func TestEncryptedFileStore(t *testing.T) {
	t.Setenv(EnvPassphrase, "test_passphrase_123")
	path := filepath.Join(t.TempDir(), "credentials.enc")

	store, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatalf("Failed to create encrypted store: %v", err)
	}

	if err := store.Store(testAccount("work")); err != nil {
		t.Fatalf("Failed to store: %v", err)
	}
	if err := store.Store(testAccount("personal")); err != nil {
		t.Fatalf("Failed to store: %v", err)
	}

	retrieved, err := store.Retrieve("work")
	if err != nil {
		t.Fatalf("Failed to retrieve: %v", err)
	}
	if retrieved.AccessSecret != "access_secret_ghijkl" {
		t.Error("AccessSecret mismatch after encryption/decryption")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(content, []byte("access_secret_ghijkl")) {
		t.Error("File contains a plaintext secret")
	}

	accounts, err := store.List()
	if err != nil || len(accounts) != 2 {
		t.Fatalf("List = %d accounts, err %v", len(accounts), err)
	}

	if err := store.Delete("work"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete("personal"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("File should be removed with the last account")
	}
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.enc")

	t.Setenv(EnvPassphrase, "first")
	store, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Store(testAccount("work")); err != nil {
		t.Fatal(err)
	}

	t.Setenv(EnvPassphrase, "second")
	other, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := other.Retrieve("work"); err == nil || !strings.Contains(err.Error(), "decrypt") {
		t.Errorf("Expected a decrypt error, got %v", err)
	}
}

func TestEnvironmentStore(t *testing.T) {
	store := NewEnvironmentStore()
	if store.Exists("") {
		t.Fatal("Environment store should be empty without variables")
	}

	t.Setenv(EnvConsumerKey, "ck")
	t.Setenv(EnvConsumerSecret, "cs")
	t.Setenv(EnvAccessToken, "at")
	t.Setenv(EnvAccessSecret, "as")

	account, err := store.Retrieve("")
	if err != nil {
		t.Fatalf("Failed to retrieve from environment: %v", err)
	}
	if account.ConsumerKey != "ck" || account.AccessSecret != "as" {
		t.Errorf("Unexpected account: %+v", account)
	}

	if err := store.Store(account); err != ErrStoreUnavailable {
		t.Error("Expected ErrStoreUnavailable for environment store")
	}

	def, err := NewManagerWithStores(NewMockStore(), store).RetrieveDefault()
	if err != nil {
		t.Fatalf("RetrieveDefault failed: %v", err)
	}
	if def.ConsumerKey != "ck" {
		t.Error("Environment credentials should win")
	}
}

func TestShowSetupGuide(t *testing.T) {
	var buf bytes.Buffer
	ShowSetupGuide(&buf)
	if !strings.Contains(buf.String(), EnvAccessSecret) {
		t.Error("Guide should name the environment variables")
	}
}
