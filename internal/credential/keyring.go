// Package credential stores API secrets in the system keyring, with
// environment variables taking precedence.
package credential

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/99designs/keyring"
)

const serviceName = "replydeck"

// Keyring keys.
const (
	GeminiAPIKey     = "gemini-api-key"
	TelegramBotToken = "telegram-bot-token"
)

// ErrNotFound is returned when a credential is in neither the
// environment nor the keyring.
var ErrNotFound = errors.New("credential not found")

// envFallbacks lists, per key, the environment variables checked before
// the keyring, in order.
var envFallbacks = map[string][]string{
	GeminiAPIKey:     {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	TelegramBotToken: {"TELEGRAM_BOT_TOKEN"},
}

// open is replaced in tests.
var open = openKeyring

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	home, _ := os.UserHomeDir()
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  filepath.Join(home, ".config", serviceName, "credentials"),
		FilePasswordFunc:         keyring.FixedStringPrompt(serviceName + "-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Lookup returns the credential for key from its environment variables
// or, failing that, the keyring.
func Lookup(key string) (string, error) {
	for _, name := range envFallbacks[key] {
		if v := os.Getenv(name); v != "" {
			return v, nil
		}
	}
	return Get(key)
}

// Get retrieves a credential value by key from the system keyring.
func Get(key string) (string, error) {
	ring, err := open()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("credential %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a credential value by key in the system keyring.
func Set(key string, value string) error {
	ring, err := open()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: serviceName + " " + key,
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes a credential by key from the system keyring.
func Delete(key string) error {
	ring, err := open()
	if err != nil {
		return err
	}

	if err := ring.Remove(key); err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}
