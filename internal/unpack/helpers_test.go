package unpack

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pombredanne/0install/internal/testutil"
)

func newTestUnpacker(t *testing.T, cfg Config) *Unpacker {
	t.Helper()

	u, err := New(cfg)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return u
}

func unpackBytes(t *testing.T, u *Unpacker, data []byte, url, extract string) (string, error) {
	t.Helper()

	dest := t.TempDir()
	err := u.Unpack(context.Background(), Request{
		SourceURL: url,
		Stream:    bytes.NewReader(data),
		Dest:      dest,
		Extract:   extract,
	})
	return dest, err
}

// recordingTool installs a fake tool in bin that appends its arguments to
// the returned log file. banner, when set, is printed for --version.
func recordingTool(t *testing.T, bin, name, banner string) string {
	t.Helper()

	log := filepath.Join(t.TempDir(), name+".log")
	script := fmt.Sprintf(`if [ "$1" = "--version" ]; then
  printf '%%s\n' %q
  exit 0
fi
echo "$@" >> %q
exit 0`, banner, log)
	testutil.FakeTool(t, bin, name, script)
	return log
}

func readLog(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return ""
	}
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return strings.TrimSpace(string(data))
}

func requireTool(t *testing.T, name string) {
	t.Helper()

	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not installed", name)
	}
}

func requireGNUTar(t *testing.T) {
	t.Helper()

	out, err := exec.Command("tar", "--version").Output()
	if err != nil || !strings.Contains(string(out), "(GNU tar)") {
		t.Skip("GNU tar not installed")
	}
}

func assertKind(t *testing.T, err error, kind Kind) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if !IsKind(err, kind) {
		t.Fatalf("expected %s error, got %v", kind, err)
	}
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()

	if names := testutil.DirEntries(t, dir); len(names) != 0 {
		t.Errorf("expected %s to be empty, found %v", dir, names)
	}
}
