package auth

import (
	"os"
	"time"
)

// EnvironmentStore implements TokenStore using environment variables.
// This is primarily for backward compatibility with .env based setups.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based token store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(token *Token) error {
	return ErrStoreUnavailable
}

// Retrieve gets the token from the VKDUMP_TOKEN environment variable
func (e *EnvironmentStore) Retrieve(name string) (*Token, error) {
	accessToken := os.Getenv("VKDUMP_TOKEN")
	if accessToken == "" {
		return nil, ErrTokenNotFound
	}

	if name == "" {
		name = "default"
	}

	return &Token{
		Name:         name,
		AccessToken:  accessToken,
		LastModified: time.Now(),
	}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

// Exists checks if an environment token is set
func (e *EnvironmentStore) Exists(name string) bool {
	return os.Getenv("VKDUMP_TOKEN") != ""
}
