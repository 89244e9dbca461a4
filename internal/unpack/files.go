package unpack

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// copyToFile copies stream, from offset to EOF, into a new file at path.
// Tools that cannot read from a pipe are given this copy instead. On error
// nothing is left at path.
func copyToFile(stream io.ReadSeeker, offset int64, path string) error {
	if err := seekTo(stream, offset); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create archive copy: %w", err)
	}
	if _, err := io.Copy(f, stream); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write archive copy: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("close archive copy: %w", err)
	}
	return nil
}

// removeQuietly removes path, treating an already-missing file as success
// and logging anything else.
func (u *Unpacker) removeQuietly(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		u.log.Warn("failed to remove temporary file", "path", path, "error", err)
	}
}

// removeTree removes dir even if the tree below it was extracted read-only.
func (u *Unpacker) removeTree(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err == nil && d.IsDir() {
			_ = os.Chmod(path, 0o700)
		}
		return nil
	})
	if err := os.RemoveAll(dir); err != nil {
		u.log.Warn("failed to remove temporary directory", "path", dir, "error", err)
	}
}

// tempFile is an anonymous scratch file in the system temp directory.
type tempFile struct {
	*os.File
}

func createTemp(pattern string) (*tempFile, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	return &tempFile{File: f}, nil
}

// Cleanup closes and deletes the file.
func (t *tempFile) Cleanup() {
	t.File.Close()
	os.Remove(t.File.Name())
}
