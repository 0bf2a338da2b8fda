// Package keychain stores the API token used to request canaries from the
// issuing service.
//
// On macOS the token is a generic password in the login Keychain:
//   - Service: "com.tripwire"
//   - Account: the key (TokenKey)
//   - Label: "tripwire: <key>" (for Keychain Access.app visibility)
//
// Items are scoped with kSecAttrAccessibleWhenUnlockedThisDeviceOnly: never
// synced to iCloud, never available when the machine is locked. Other
// platforms keep the token in an owner-only JSON file.
package keychain

import "errors"

// TokenKey is the key the issuer API token is stored under.
const TokenKey = "token"

// ErrNotFound is returned when a key has no value in the store.
var ErrNotFound = errors.New("secret not found")

// Store is the interface for secret storage operations.
type Store interface {
	Set(key, value string) error
	Get(key string) (string, error)
	Delete(key string) error
}
