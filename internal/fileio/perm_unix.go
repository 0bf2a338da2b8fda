//go:build !windows

package fileio

import (
	"io/fs"
	"os"
)

// Chmod sets permission bits. File-mode bits are meaningless on windows,
// where this is a no-op.
func Chmod(path string, perm fs.FileMode) error {
	return os.Chmod(path, perm)
}
