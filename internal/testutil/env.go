// Package testutil provides utilities for testing 0store in isolation.
package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// SetupTestEnv points every location 0store reads from at a fresh temporary
// directory, so tests never see the user's configuration or leave files in
// the real temp directory. It returns the root of that directory.
//
// Cleanup is handled by t.TempDir(), so callers don't need to clean up.
func SetupTestEnv(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()

	t.Setenv("HOME", filepath.Join(tmpDir, "home"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "home", ".config"))
	t.Setenv("TMPDIR", filepath.Join(tmpDir, "tmp"))
	t.Setenv("ZSTORE_CONFIG", "")
	t.Setenv("ZSTORE_DEBUG", "")

	dirs := []string{
		filepath.Join(tmpDir, "home", ".config"),
		filepath.Join(tmpDir, "tmp"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatalf("failed to create test directory %s: %v", dir, err)
		}
	}
	return tmpDir
}

// FakeTool writes an executable shell script named name into dir.
func FakeTool(t *testing.T, dir, name, script string) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("fake tools are shell scripts")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("failed to create tool directory: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatalf("failed to write fake %s: %v", name, err)
	}
	return path
}

// PrependPath puts dirs in front of $PATH for the rest of the test.
func PrependPath(t *testing.T, dirs ...string) {
	t.Helper()
	t.Setenv("PATH", strings.Join(append(dirs, os.Getenv("PATH")), string(os.PathListSeparator)))
}

// OnlyPath replaces $PATH with dirs for the rest of the test, hiding every
// system tool.
func OnlyPath(t *testing.T, dirs ...string) {
	t.Helper()
	t.Setenv("PATH", strings.Join(dirs, string(os.PathListSeparator)))
}

// DirEntries lists the names in dir, failing the test on error.
func DirEntries(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read %s: %v", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
