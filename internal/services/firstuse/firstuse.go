// Package firstuse tells whether the application runs for the first time.
package firstuse

import "github.com/pkg/errors"

const (
	// AppKey marks that the dashboard intro has been shown.
	AppKey = "isFirstUse"
	// CLIKey marks that the command-line welcome has been shown.
	CLIKey = "cliFirstRun"

	usedValue = "false"
)

// KVStore persists string flags. SetIfAbsent must check and write atomically.
type KVStore interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	SetIfAbsent(key, value string) (bool, error)
}

// IsFirstAppUse reports whether the dashboard is used for the first time.
func IsFirstAppUse(store KVStore) (bool, error) {
	return Check(store, AppKey)
}

// IsFirstClientUse reports whether the dashboard is used for the first time by one client.
func IsFirstClientUse(store KVStore, clientID string) (bool, error) {
	return Check(store, ClientKey(clientID))
}

// ClientKey returns the flag key of one client.
func ClientKey(clientID string) string {
	return AppKey + ":" + clientID
}

// Check returns true exactly once per key: the first call marks the key as used.
// Concurrent callers on one store get a single true between them.
func Check(store KVStore, key string) (bool, error) {
	first, err := store.SetIfAbsent(key, usedValue)
	if err != nil {
		return false, errors.Wrapf(err, "mark %s as used", key)
	}

	return first, nil
}
