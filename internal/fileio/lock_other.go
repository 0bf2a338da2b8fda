//go:build !unix && !windows

package fileio

import (
	"errors"
	"os"
)

func lockFile(f *os.File, mode Mode) error {
	return errors.ErrUnsupported
}

func unlockFile(f *os.File) error {
	return nil
}
