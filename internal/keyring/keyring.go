package keyring

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/julianstephens/habitloop/internal/constants"
)

var (
	// ErrNotFound is returned when no secret is stored under the given name
	ErrNotFound = errors.New("secret not found in keyring")
	// ErrKeyringUnavailable is returned when the OS keyring is not available
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

// Secret names the keyring entries habitloop reads.
type Secret string

const (
	JWTSecret     Secret = constants.DefaultKeyringUser
	ExtractAPIKey Secret = constants.KeyringAPIKeyUser
	DatabaseDSN   Secret = constants.KeyringDSNUser
)

// Secrets lists every entry in a stable order.
var Secrets = []Secret{JWTSecret, ExtractAPIKey, DatabaseDSN}

func (s Secret) IsValid() bool {
	for _, known := range Secrets {
		if s == known {
			return true
		}
	}
	return false
}

// Get retrieves a secret from the OS keyring.
// Returns ErrNotFound if nothing is stored.
func Get(name Secret) (string, error) {
	value, err := keyring.Get(constants.AppName, string(name))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return value, nil
}

// Set stores a secret in the OS keyring.
func Set(name Secret, value string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	if err := keyring.Set(constants.AppName, string(name), value); err != nil {
		return fmt.Errorf("failed to store %s in keyring: %w", name, err)
	}
	return nil
}

// Delete removes a secret from the OS keyring.
func Delete(name Secret) error {
	if err := keyring.Delete(constants.AppName, string(name)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete %s from keyring: %w", name, err)
	}
	return nil
}

// Lookup returns fallback when it is set, otherwise the keyring value. A
// missing or unavailable keyring yields "" without error.
func Lookup(name Secret, fallback string) string {
	if fallback != "" {
		return fallback
	}
	value, err := Get(name)
	if err != nil {
		return ""
	}
	return value
}

// IsAvailable checks if the OS keyring is available on the current system.
// This is a best-effort check.
func IsAvailable() bool {
	_, err := keyring.Get(constants.AppName, "test-availability")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}
