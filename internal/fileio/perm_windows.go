//go:build windows

package fileio

import "io/fs"

// Chmod is a no-op on windows.
func Chmod(path string, perm fs.FileMode) error {
	return nil
}
