package testutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Manifest describes the tree under root, one line per entry in path
// order: directories with their mtime, files with mode class, mtime, size
// and content digest, symlinks with their target. The root itself is not
// listed. Two trees that unpack identically have identical manifests.
func Manifest(t *testing.T, root string) string {
	t.Helper()

	var lines []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		info, err := os.Lstat(path)
		if err != nil {
			return err
		}
		switch {
		case info.Mode()&os.ModeSymlink != 0:
			target, err := os.Readlink(path)
			if err != nil {
				return err
			}
			lines = append(lines, fmt.Sprintf("S %s %s", rel, target))
		case info.IsDir():
			lines = append(lines, fmt.Sprintf("D %s %d", rel, info.ModTime().Unix()))
		default:
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			kind := "F"
			if info.Mode().Perm()&0o111 != 0 {
				kind = "X"
			}
			sum := sha256.Sum256(data)
			lines = append(lines, fmt.Sprintf("%s %s %d %d %s", kind, rel, info.ModTime().Unix(), len(data), hex.EncodeToString(sum[:])))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("failed to walk %s: %v", root, err)
	}
	return strings.Join(lines, "\n")
}

// ManifestDigest is the sha256 of Manifest(t, root).
func ManifestDigest(t *testing.T, root string) string {
	t.Helper()

	sum := sha256.Sum256([]byte(Manifest(t, root)))
	return hex.EncodeToString(sum[:])
}
