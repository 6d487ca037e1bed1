// Package fsutil holds the crash-safe file operations used for project
// state: replacing small files whole and creating directories whose
// entries must survive a power loss.
package fsutil

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// WriteFile replaces path with whatever write produces. The content goes to
// a hidden sibling temp file that is synced and renamed over path, so a
// reader sees either the old or the new file, never a mix. The parent
// directory must exist. An error before the rename leaves path untouched.
func WriteFile(path string, perm os.FileMode, write func(io.Writer) error) (err error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return fmt.Errorf("replace %s: %w", base, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err := write(tmp); err != nil {
		return fmt.Errorf("replace %s: %w", base, err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return fmt.Errorf("replace %s: chmod: %w", base, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("replace %s: sync: %w", base, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("replace %s: close: %w", base, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", base, err)
	}
	return FsyncDir(dir)
}

// WriteFileBytes is WriteFile for content already in memory.
func WriteFileBytes(path string, data []byte, perm os.FileMode) error {
	return WriteFile(path, perm, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// MkdirDurable creates dir and any missing parents, syncing each parent
// that gained an entry so the new directories outlive a crash.
func MkdirDurable(dir string, perm os.FileMode) error {
	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("mkdir %s: not a directory", dir)
		}
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	parent := filepath.Dir(dir)
	if parent != dir {
		if err := MkdirDurable(parent, perm); err != nil {
			return err
		}
	}
	if err := os.Mkdir(dir, perm); err != nil && !errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return FsyncDir(parent)
}

// FsyncDir fsyncs a directory so a new entry in it survives a crash.
func FsyncDir(dirPath string) error {
	d, err := os.Open(dirPath)
	if err != nil {
		return fmt.Errorf("fsync dir open: %w", err)
	}
	defer d.Close()
	return d.Sync()
}
