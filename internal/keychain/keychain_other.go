//go:build !darwin

package keychain

// Default returns the platform's token store. The macOS Keychain is not
// available here, so secrets are kept in the JSON file at filePath.
func Default(filePath string) Store {
	return NewFileStore(filePath)
}
