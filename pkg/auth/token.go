package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Common errors returned by token stores
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenNotFound    = errors.New("token not found")
	ErrStoreUnavailable = errors.New("token store unavailable")
)

// Token represents a stored VK access token
type Token struct {
	Name         string    `json:"name"`
	AccessToken  string    `json:"access_token"`
	LastModified time.Time `json:"last_modified"`
}

// TokenStore is the interface for storing and retrieving access tokens
type TokenStore interface {
	// Store saves a token under its name
	Store(token *Token) error

	// Retrieve gets the token with the given name
	Retrieve(name string) (*Token, error)

	// Delete removes the token with the given name
	Delete(name string) error

	// Exists checks if a token with the given name is stored
	Exists(name string) bool
}

// Manager handles token storage with fallback mechanisms
type Manager struct {
	stores []TokenStore
}

// NewManager creates a new token manager with appropriate storage backends
func NewManager() (*Manager, error) {
	var stores []TokenStore

	// Try keyring first (system keychain)
	keyringStore, err := NewKeyringStore()
	if err == nil {
		stores = append(stores, keyringStore)
	}

	// Always add encrypted file store as fallback
	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "tokens.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	// Add environment store as last resort
	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a manager backed by the given stores, in order
func NewManagerWithStores(stores ...TokenStore) *Manager {
	return &Manager{stores: stores}
}

// Store saves a token using the first available store
func (m *Manager) Store(token *Token) error {
	if token == nil || token.AccessToken == "" {
		return ErrInvalidToken
	}
	if token.Name == "" {
		token.Name = "default"
	}

	token.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		if err := store.Store(token); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store token: %w", lastErr)
	}
	return errors.New("no available token stores")
}

// Retrieve gets a token from the first store that has it
func (m *Manager) Retrieve(name string) (*Token, error) {
	if name == "" {
		name = "default"
	}
	for _, store := range m.stores {
		if token, err := store.Retrieve(name); err == nil && token != nil {
			return token, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrTokenNotFound, name)
}

// Delete removes a token from every store that has it
func (m *Manager) Delete(name string) error {
	if name == "" {
		name = "default"
	}
	deleted := false
	for _, store := range m.stores {
		if store.Exists(name) {
			if err := store.Delete(name); err == nil {
				deleted = true
			}
		}
	}
	if !deleted {
		return fmt.Errorf("%w: %s", ErrTokenNotFound, name)
	}
	return nil
}

// Exists checks if a token is stored under the given name
func (m *Manager) Exists(name string) bool {
	if name == "" {
		name = "default"
	}
	for _, store := range m.stores {
		if store.Exists(name) {
			return true
		}
	}
	return false
}

// getConfigDir returns the directory for vkdump configuration files
func getConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "vkdump"), nil
}
