package fileio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

// ReadAll reads the whole file from the start.
func (f *File) ReadAll() ([]byte, error) {
	if _, err := f.f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(f.f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", f.path, err)
	}
	return data, nil
}

// Replace overwrites the file with data and truncates it to len(data).
// The lock is held throughout, so no other locker observes a partial write.
func (f *File) Replace(data []byte) error {
	if f.mode != Exclusive {
		return fmt.Errorf("rewriting %s: file is not locked exclusively", f.path)
	}
	if _, err := f.f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := f.f.Write(data); err != nil {
		return fmt.Errorf("writing %s: %w", f.path, err)
	}
	if err := f.f.Truncate(int64(len(data))); err != nil {
		return fmt.Errorf("truncating %s: %w", f.path, err)
	}
	return f.f.Sync()
}

// Lines is a text file split into lines, remembering the file's newline
// convention so a rewrite keeps it.
//
// A line whose ending differs from the convention keeps that ending in its
// text: "\r" on a CRLF line of an LF file, "\n" on an LF line of a CRLF
// file. Such lines are written back byte for byte.
type Lines struct {
	Text    []string
	Newline string
}

// SplitLines splits data on "\n". The newline convention is "\r\n" if the
// first line ends with it.
func SplitLines(data []byte) Lines {
	l := Lines{Newline: "\n"}
	if len(data) == 0 {
		return l
	}
	if i := bytes.IndexByte(data, '\n'); i > 0 && data[i-1] == '\r' {
		l.Newline = "\r\n"
	}
	text := string(data)
	terminated := strings.HasSuffix(text, "\n")
	segments := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	for i, line := range segments {
		last := i == len(segments)-1
		crlf := l.Newline == "\r\n"
		switch {
		case last && !terminated:
			// Written back with the file's newline.
		case crlf && strings.HasSuffix(line, "\r"):
			line = strings.TrimSuffix(line, "\r")
		case crlf:
			line += "\n"
		}
		l.Text = append(l.Text, line)
	}
	return l
}

// Bytes joins the lines, terminating every line with the newline unless it
// already ends in "\n".
func (l Lines) Bytes() []byte {
	nl := l.Newline
	if nl == "" {
		nl = "\n"
	}
	var b strings.Builder
	for _, line := range l.Text {
		b.WriteString(line)
		if !strings.HasSuffix(line, "\n") {
			b.WriteString(nl)
		}
	}
	return []byte(b.String())
}

// ReadLines reads the file and splits it into lines.
func (f *File) ReadLines() (Lines, error) {
	data, err := f.ReadAll()
	if err != nil {
		return Lines{}, err
	}
	return SplitLines(data), nil
}

// WriteLines replaces the file contents with lines.
func (f *File) WriteLines(lines Lines) error {
	return f.Replace(lines.Bytes())
}

// EnsureDir creates dir with perm if it is missing. Permission bits are
// only applied to a directory this call created.
func EnsureDir(dir string, perm fs.FileMode) error {
	if _, err := os.Stat(dir); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.MkdirAll(dir, perm); err != nil {
		return err
	}
	return Chmod(dir, perm)
}

// EnsureFile creates an empty file with perm if it is missing. Permission
// bits are only applied to a file this call created.
func EnsureFile(path string, perm fs.FileMode) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil
		}
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return Chmod(path, perm)
}

// RemoveIfExists removes path, treating a missing file as success.
func RemoveIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Exists reports whether path names an existing file.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
