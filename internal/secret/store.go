package secret

import (
	"fmt"

	"github.com/spf13/viper"
)

// Keys of the secrets the application reads.
const (
	KeyDatabasePassword = "database.password"
	KeyNewsletterAPIKey = "newsletter.api_key"
)

// SecretStore provides a pluggable interface for storing sensitive data
// such as database passwords and API keys.
type SecretStore interface {
	// Set stores a secret value under the given key.
	Set(key string, value []byte) error

	// Get retrieves the secret value for the given key.
	// Returns empty slice and nil error if key does not exist.
	Get(key string) ([]byte, error)

	// Delete removes the secret for the given key.
	Delete(key string) error
}

// New returns the SecretStore for backend: "keychain" uses the macOS
// Keychain and falls back to configuration, "config" (or "") reads the
// configuration and environment only.
func New(backend string, v *viper.Viper) (SecretStore, error) {
	switch backend {
	case "", "config":
		return NewViperStore(v), nil
	case "keychain":
		return Chain{NewKeychainStore(v.GetString("secrets.keychain_service")), NewViperStore(v)}, nil
	default:
		return nil, fmt.Errorf("unknown secret backend %q", backend)
	}
}

// GetString reads a secret as a string.
func GetString(s SecretStore, key string) (string, error) {
	b, err := s.Get(key)
	if err != nil {
		return "", fmt.Errorf("read secret %s: %w", key, err)
	}
	return string(b), nil
}

// Chain reads from the first store holding a value and writes to the first
// store only.
type Chain []SecretStore

func (c Chain) Set(key string, value []byte) error {
	if len(c) == 0 {
		return fmt.Errorf("secret chain is empty")
	}
	return c[0].Set(key, value)
}

func (c Chain) Get(key string) ([]byte, error) {
	for _, s := range c {
		b, err := s.Get(key)
		if err != nil {
			return nil, err
		}
		if len(b) > 0 {
			return b, nil
		}
	}
	return nil, nil
}

func (c Chain) Delete(key string) error {
	for _, s := range c {
		if err := s.Delete(key); err != nil {
			return err
		}
	}
	return nil
}
