// Package util provides small file helpers shared by spielbash packages.
package util

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// AtomicWriteFile writes data to path through a temporary file in the same
// directory followed by a rename, so readers never observe a partially
// written recording. The rename is atomic on POSIX systems.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	// The "*" is replaced with a random suffix, so concurrent writers never
	// share a temp file.
	f, err := os.CreateTemp(dir, base+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpName)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	// CreateTemp uses 0600.
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// AtomicReplace rewrites an existing file atomically, keeping its permission
// bits. A missing file is created with mode 0644.
func AtomicReplace(path string, data []byte) error {
	perm := os.FileMode(0644)
	info, err := os.Stat(path)
	switch {
	case err == nil:
		perm = info.Mode().Perm()
	case !errors.Is(err, fs.ErrNotExist):
		return err
	}
	return AtomicWriteFile(path, data, perm)
}
