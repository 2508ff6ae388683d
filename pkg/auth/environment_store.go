package auth

import (
	"os"
	"time"
)

// Environment variables read by EnvironmentStore
const (
	EnvConsumerKey    = "TWEETVAULT_CONSUMER_KEY"
	EnvConsumerSecret = "TWEETVAULT_CONSUMER_SECRET"
	EnvAccessToken    = "TWEETVAULT_ACCESS_TOKEN"
	EnvAccessSecret   = "TWEETVAULT_ACCESS_SECRET"
)

// EnvironmentStore is a read-only CredentialStore backed by environment
// variables
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(*Account) error {
	return ErrStoreUnavailable
}

// Retrieve returns the environment credentials under any name
func (e *EnvironmentStore) Retrieve(name string) (*Account, error) {
	account := &Account{
		Name:           name,
		ConsumerKey:    os.Getenv(EnvConsumerKey),
		ConsumerSecret: os.Getenv(EnvConsumerSecret),
		AccessToken:    os.Getenv(EnvAccessToken),
		AccessSecret:   os.Getenv(EnvAccessSecret),
		LastModified:   time.Now(),
	}
	if account.Validate() != nil {
		return nil, ErrCredentialsNotFound
	}
	if account.Name == "" {
		account.Name = "environment"
	}
	return account, nil
}

// List returns a single account if the environment is complete
func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(string) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Exists(string) bool {
	_, err := e.Retrieve("")
	return err == nil
}
