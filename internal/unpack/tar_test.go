package unpack

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/pombredanne/0install/internal/testutil"
)

func TestValidateExtract(t *testing.T) {
	tests := []struct {
		extract string
		wantErr bool
	}{
		{"", false},
		{"HelloWorld", false},
		{"hello-world_1.0", false},
		{"9lives", false},
		{"-rf", true},
		{".hidden", true},
		{"_private", true},
		{"a/b", true},
		{"`ls`", true},
		{"foo bar", true},
		{"foo*", true},
		{"$(id)", true},
		{"foo\n", true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.extract), func(t *testing.T) {
			err := validateExtract(tt.extract)
			if tt.wantErr {
				assertKind(t, err, KindIllegalExtractPath)
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestCheckExtract(t *testing.T) {
	tests := []struct {
		format  Format
		extract string
		kind    Kind
	}{
		{FormatTarGzip, "HelloWorld", 0},
		{FormatTarXz, "`ls`", KindIllegalExtractPath},
		{FormatZip, "-rf", KindIllegalExtractPath},
		{FormatGem, "lib", 0},
		{FormatDeb, "", 0},
		{FormatDeb, "usr", KindUnsupportedExtractPath},
		{FormatRpm, "usr", KindUnsupportedExtractPath},
		{FormatCab, "x", KindUnsupportedExtractPath},
		{FormatDmg, "App", KindUnsupportedExtractPath},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s %q", tt.format, tt.extract), func(t *testing.T) {
			err := CheckExtract(tt.format, tt.extract)
			if tt.kind == 0 {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			assertKind(t, err, tt.kind)
		})
	}
}

func TestNormalizeMode(t *testing.T) {
	tests := []struct {
		name  string
		mode  os.FileMode
		umask os.FileMode
		dir   bool
		want  os.FileMode
	}{
		{"owner exec spreads", 0o700, 0o022, false, 0o755},
		{"group exec spreads", 0o610, 0o022, false, 0o755},
		{"read-only becomes writable", 0o444, 0o022, false, 0o644},
		{"private becomes readable", 0o600, 0o022, false, 0o644},
		{"strict umask", 0o755, 0o077, false, 0o700},
		{"dir without exec", 0o600, 0o022, true, 0o755},
		{"setuid dropped", 0o4755, 0o022, false, 0o755},
		{"zero umask", 0o644, 0, false, 0o666},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeMode(tt.mode, tt.umask, tt.dir); got != tt.want {
				t.Errorf("normalizeMode(%o, %o, %v) = %o, want %o", tt.mode, tt.umask, tt.dir, got, tt.want)
			}
		})
	}
}

func TestPortableTarCompressions(t *testing.T) {
	tarball := testutil.Tar(t, testutil.SampleTree())

	tests := []struct {
		url  string
		data []byte
	}{
		{"http://example.com/sample.tar", tarball},
		{"http://example.com/sample.tgz", testutil.Gzip(t, tarball)},
		{"http://example.com/sample.tar.lzma", testutil.Lzma(t, tarball)},
	}

	var want string
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			// No external tools: every decoder runs in-process.
			testutil.OnlyPath(t, t.TempDir())

			u := newTestUnpacker(t, Config{PortableTar: true})
			dest, err := unpackBytes(t, u, tt.data, tt.url, "")
			if err != nil {
				t.Fatalf("Unpack() failed: %v", err)
			}

			got := testutil.Manifest(t, dest)
			if want == "" {
				want = got
			} else if got != want {
				t.Errorf("manifest differs from plain tar:\n%s\n---\n%s", got, want)
			}
		})
	}
}

func TestPortableTarInProcessDecoders(t *testing.T) {
	testutil.OnlyPath(t, t.TempDir())
	tarball := testutil.Tar(t, testutil.SampleTree())
	u := newTestUnpacker(t, Config{PortableTar: true})

	for _, c := range []struct {
		compression Compression
		data        []byte
	}{
		{CompressionXz, testutil.Xz(t, tarball)},
		{CompressionZstd, testutil.Zstd(t, tarball)},
		{CompressionLzma, testutil.Lzma(t, tarball)},
	} {
		t.Run(c.compression.String(), func(t *testing.T) {
			dest := t.TempDir()
			if err := u.extractTar(context.Background(), bytes.NewReader(c.data), dest, "", c.compression, 0); err != nil {
				t.Fatalf("extractTar() failed: %v", err)
			}
			if got := testutil.DirEntries(t, dest); !slices.Equal(got, []string{"HelloWorld", "other"}) {
				t.Errorf("dest contains %v", got)
			}
		})
	}
}

func TestPortableTarPermissionsAndTimes(t *testing.T) {
	testutil.OnlyPath(t, t.TempDir())
	u := newTestUnpacker(t, Config{PortableTar: true})

	dest, err := unpackBytes(t, u, testutil.Tar(t, testutil.SampleTree()), "sample.tar", "")
	if err != nil {
		t.Fatalf("Unpack() failed: %v", err)
	}

	umask := os.FileMode(currentUmask())
	modes := map[string]os.FileMode{
		"HelloWorld":              0o777 &^ umask,
		"HelloWorld/main":         0o777 &^ umask,
		"HelloWorld/README":       0o666 &^ umask,
		"HelloWorld/lib":          0o777 &^ umask,
		"HelloWorld/lib/data.txt": 0o666 &^ umask,
		"other/file":              0o666 &^ umask,
	}
	for name, want := range modes {
		info, err := os.Stat(filepath.Join(dest, name))
		if err != nil {
			t.Errorf("stat %s: %v", name, err)
			continue
		}
		if got := info.Mode().Perm(); got != want {
			t.Errorf("%s mode = %o, want %o", name, got, want)
		}
	}

	times := map[string]time.Time{
		"HelloWorld":      testutil.FixtureTime,
		"HelloWorld/lib":  testutil.FixtureTime.Add(-time.Hour),
		"HelloWorld/main": testutil.FixtureTime,
	}
	for name, want := range times {
		info, err := os.Stat(filepath.Join(dest, name))
		if err != nil {
			t.Errorf("stat %s: %v", name, err)
			continue
		}
		if !info.ModTime().Equal(want) {
			t.Errorf("%s mtime = %v, want %v", name, info.ModTime(), want)
		}
	}

	target, err := os.Readlink(filepath.Join(dest, "HelloWorld", "run"))
	if err != nil {
		t.Fatalf("readlink: %v", err)
	}
	if target != "main" {
		t.Errorf("symlink target = %q, want main", target)
	}
}

// Manifest digests of testutil.SampleTree unpacked whole and with
// extract="HelloWorld". They pin modes, mtimes and symlinks across both
// tar paths.
const (
	sampleTreeDigest    = "46ea98dc1969506b29e6b5ddacb96e15172d27ae86b9d03f6ad88d231979cae1"
	sampleSubtreeDigest = "6994386f1cd478c175ce23860f7c1cf59a92d33080c5b2fb8456c89125fa08ad"
)

func assertSampleDigests(t *testing.T, u *Unpacker, url string) {
	t.Helper()

	data := testutil.Gzip(t, testutil.Tar(t, testutil.SampleTree()))
	tests := []struct {
		extract string
		want    string
	}{
		{"", sampleTreeDigest},
		{"HelloWorld", sampleSubtreeDigest},
	}
	for _, tt := range tests {
		dest, err := unpackBytes(t, u, data, url, tt.extract)
		if err != nil {
			t.Fatalf("Unpack(extract=%q) failed: %v", tt.extract, err)
		}
		if got := testutil.ManifestDigest(t, dest); got != tt.want {
			t.Errorf("extract=%q digest = %s, want %s\nmanifest:\n%s", tt.extract, got, tt.want, testutil.Manifest(t, dest))
		}
	}
}

func TestPortableTarDeterministic(t *testing.T) {
	testutil.OnlyPath(t, t.TempDir())
	u := newTestUnpacker(t, Config{PortableTar: true})

	assertSampleDigests(t, u, "sample.tgz")
	assertSampleDigests(t, u, "sample.tgz")
}

func TestPortableTarReplacesSymlink(t *testing.T) {
	tests := []struct {
		name    string
		entries []testutil.Entry
		check   func(t *testing.T, dir string)
	}{
		{
			name: "file over symlink",
			entries: []testutil.Entry{
				{Name: "d/main", Body: "ORIGINAL", Mode: 0o644},
				{Name: "d/run", Symlink: "main"},
				{Name: "d/run", Body: "REPLACED", Mode: 0o644},
			},
			check: func(t *testing.T, dir string) {
				info, err := os.Lstat(filepath.Join(dir, "run"))
				if err != nil {
					t.Fatal(err)
				}
				if !info.Mode().IsRegular() {
					t.Errorf("run should be a regular file, mode %v", info.Mode())
				}
				if data, _ := os.ReadFile(filepath.Join(dir, "run")); string(data) != "REPLACED" {
					t.Errorf("run = %q", data)
				}
			},
		},
		{
			name: "repeated symlink",
			entries: []testutil.Entry{
				{Name: "d/main", Body: "ORIGINAL", Mode: 0o644},
				{Name: "d/run", Symlink: "main"},
				{Name: "d/run", Symlink: "main"},
			},
			check: func(t *testing.T, dir string) {
				if target, err := os.Readlink(filepath.Join(dir, "run")); err != nil || target != "main" {
					t.Errorf("run -> %q, %v", target, err)
				}
			},
		},
		{
			name: "directory over symlink",
			entries: []testutil.Entry{
				{Name: "d/main", Body: "ORIGINAL", Mode: 0o644},
				{Name: "d/run", Symlink: "."},
				{Name: "d/run/", Mode: 0o755},
				{Name: "d/run/main", Body: "REPLACED", Mode: 0o644},
			},
			check: func(t *testing.T, dir string) {
				info, err := os.Lstat(filepath.Join(dir, "run"))
				if err != nil || !info.IsDir() {
					t.Errorf("run should be a directory: %v, %v", info, err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.OnlyPath(t, t.TempDir())
			u := newTestUnpacker(t, Config{PortableTar: true})

			dest, err := unpackBytes(t, u, testutil.Tar(t, tt.entries), "sample.tar", "")
			if err != nil {
				t.Fatalf("Unpack() failed: %v", err)
			}
			dir := filepath.Join(dest, "d")
			if data, err := os.ReadFile(filepath.Join(dir, "main")); err != nil || string(data) != "ORIGINAL" {
				t.Errorf("symlink target was modified: %q, %v", data, err)
			}
			tt.check(t, dir)
		})
	}
}

func TestPortableTarSubpath(t *testing.T) {
	testutil.OnlyPath(t, t.TempDir())
	u := newTestUnpacker(t, Config{PortableTar: true})
	data := testutil.Tar(t, testutil.SampleTree())

	whole, err := unpackBytes(t, u, data, "sample.tar", "")
	if err != nil {
		t.Fatalf("Unpack() failed: %v", err)
	}
	sub, err := unpackBytes(t, u, data, "sample.tar", "HelloWorld")
	if err != nil {
		t.Fatalf("Unpack(extract) failed: %v", err)
	}

	if got := testutil.DirEntries(t, sub); !slices.Equal(got, []string{"HelloWorld"}) {
		t.Errorf("subpath unpack produced %v", got)
	}
	if a, b := testutil.Manifest(t, filepath.Join(whole, "HelloWorld")), testutil.Manifest(t, filepath.Join(sub, "HelloWorld")); a != b {
		t.Errorf("subtree differs:\n%s\n---\n%s", a, b)
	}
}

func TestPortableTarSubpathPrefixIsNotAMatch(t *testing.T) {
	testutil.OnlyPath(t, t.TempDir())
	u := newTestUnpacker(t, Config{PortableTar: true})
	data := testutil.Tar(t, []testutil.Entry{
		{Name: "foo/", Mode: 0o755},
		{Name: "foo/a", Body: "a", Mode: 0o644},
		{Name: "foobar/", Mode: 0o755},
		{Name: "foobar/b", Body: "b", Mode: 0o644},
	})

	dest, err := unpackBytes(t, u, data, "sample.tar", "foo")
	if err != nil {
		t.Fatalf("Unpack() failed: %v", err)
	}
	if got := testutil.DirEntries(t, dest); !slices.Equal(got, []string{"foo"}) {
		t.Errorf("dest contains %v, want [foo]", got)
	}
}

func TestPortableTarMissingSubpath(t *testing.T) {
	testutil.OnlyPath(t, t.TempDir())
	u := newTestUnpacker(t, Config{PortableTar: true})

	dest, err := unpackBytes(t, u, testutil.Tar(t, testutil.SampleTree()), "sample.tar", "missing")
	assertKind(t, err, KindNotFound)
	assertEmptyDir(t, dest)
}

func TestPortableTarStaysInsideDest(t *testing.T) {
	testutil.OnlyPath(t, t.TempDir())
	u := newTestUnpacker(t, Config{PortableTar: true})
	outside := t.TempDir()

	data := testutil.Tar(t, []testutil.Entry{
		{Name: "escape", Symlink: outside},
		{Name: "escape/pwned", Body: "x", Mode: 0o644},
		{Name: "../up", Body: "x", Mode: 0o644},
	})
	dest, err := unpackBytes(t, u, data, "sample.tar", "")
	if err != nil {
		t.Fatalf("Unpack() failed: %v", err)
	}

	assertEmptyDir(t, outside)
	if _, err := os.Stat(filepath.Join(filepath.Dir(dest), "up")); !os.IsNotExist(err) {
		t.Errorf("entry escaped dest: %v", err)
	}
}

func TestPortableTarStartOffset(t *testing.T) {
	testutil.OnlyPath(t, t.TempDir())
	u := newTestUnpacker(t, Config{PortableTar: true})

	prefix := []byte("#!/bin/sh\nexit 0\n")
	data := append(append([]byte{}, prefix...), testutil.Gzip(t, testutil.Tar(t, testutil.SampleTree()))...)

	dest := t.TempDir()
	err := u.Unpack(context.Background(), Request{
		SourceURL:   "installer.tar.gz",
		Stream:      bytes.NewReader(data),
		Dest:        dest,
		StartOffset: int64(len(prefix)),
	})
	if err != nil {
		t.Fatalf("Unpack() failed: %v", err)
	}
	if got := testutil.DirEntries(t, dest); !slices.Equal(got, []string{"HelloWorld", "other"}) {
		t.Errorf("dest contains %v", got)
	}
}

func TestTarIllegalExtractRunsNothing(t *testing.T) {
	bin := t.TempDir()
	tarLog := recordingTool(t, bin, "tar", "tar (GNU tar) 1.34")
	testutil.PrependPath(t, bin)

	u := newTestUnpacker(t, Config{})
	dest, err := unpackBytes(t, u, testutil.Tar(t, testutil.SampleTree()), "sample.tar", "`ls`")
	assertKind(t, err, KindIllegalExtractPath)
	assertEmptyDir(t, dest)

	if got := readLog(t, tarLog); got != "" {
		t.Errorf("tar ran with %q", got)
	}
}

func TestGNUTarArguments(t *testing.T) {
	tests := []struct {
		name    string
		banner  string
		url     string
		extract string
		want    string
	}{
		{"recent plain", "tar (GNU tar) 1.34", "a.tar", "", "-x --no-same-owner --no-same-permissions -f -"},
		{"recent gzip subpath", "tar (GNU tar) 1.34", "a.tgz", "HelloWorld", "-z -x --no-same-owner --no-same-permissions -f - HelloWorld"},
		{"recent bzip2", "tar (GNU tar) 1.34", "a.tar.bz2", "", "--bzip2 -x --no-same-owner --no-same-permissions -f -"},
		{"legacy", "tar (GNU tar) 1.13.92", "a.tar.gz", "", "-z -x -f -"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bin := t.TempDir()
			tarLog := recordingTool(t, bin, "tar", tt.banner)
			testutil.PrependPath(t, bin)

			u := newTestUnpacker(t, Config{})
			if _, err := unpackBytes(t, u, []byte("ignored"), tt.url, tt.extract); err != nil {
				t.Fatalf("Unpack() failed: %v", err)
			}
			if got := readLog(t, tarLog); got != tt.want {
				t.Errorf("tar args = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGNUTarUsesExternalDecompressor(t *testing.T) {
	bin := t.TempDir()
	tarLog := recordingTool(t, bin, "tar", "tar (GNU tar) 1.34")
	testutil.FakeTool(t, bin, "unxz", "exec cat")
	testutil.PrependPath(t, bin)

	u := newTestUnpacker(t, Config{})
	if _, err := unpackBytes(t, u, []byte("ignored"), "a.tar.xz", ""); err != nil {
		t.Fatalf("Unpack() failed: %v", err)
	}

	want := "--use-compress-program=" + filepath.Join(bin, "unxz") + " -x --no-same-owner --no-same-permissions -f -"
	if got := readLog(t, tarLog); got != want {
		t.Errorf("tar args = %q, want %q", got, want)
	}
}

func TestGNUTarUsesHelpersDir(t *testing.T) {
	bin := t.TempDir()
	tarLog := recordingTool(t, bin, "tar", "tar (GNU tar) 1.34")
	testutil.OnlyPath(t, bin)

	helpers := t.TempDir()
	helper := testutil.FakeTool(t, helpers, "_unlzma", "exit 0")

	u := newTestUnpacker(t, Config{HelpersDir: helpers})
	if _, err := unpackBytes(t, u, []byte("ignored"), "a.tar.lzma", ""); err != nil {
		t.Fatalf("Unpack() failed: %v", err)
	}

	want := "--use-compress-program=" + helper + " -x --no-same-owner --no-same-permissions -f -"
	if got := readLog(t, tarLog); got != want {
		t.Errorf("tar args = %q, want %q", got, want)
	}
}

func TestGNUTarDecodesInProcessWithoutHelper(t *testing.T) {
	bin := t.TempDir()
	received := filepath.Join(t.TempDir(), "stdin")
	testutil.FakeTool(t, bin, "tar", fmt.Sprintf(`if [ "$1" = "--version" ]; then echo "tar (GNU tar) 1.34"; exit 0; fi
/bin/cat > %q`, received))
	testutil.OnlyPath(t, bin)

	tarball := testutil.Tar(t, testutil.SampleTree())
	u := newTestUnpacker(t, Config{})
	if _, err := unpackBytes(t, u, testutil.Lzma(t, tarball), "a.tar.lzma", ""); err != nil {
		t.Fatalf("Unpack() failed: %v", err)
	}

	got, err := os.ReadFile(received)
	if err != nil {
		t.Fatalf("tar did not run: %v", err)
	}
	if !bytes.Equal(got, tarball) {
		t.Errorf("tar received %d bytes, want the %d byte decoded stream", len(got), len(tarball))
	}
}

func TestGNUTarFailureReportsStderr(t *testing.T) {
	bin := t.TempDir()
	testutil.FakeTool(t, bin, "tar", `if [ "$1" = "--version" ]; then echo "tar (GNU tar) 1.34"; exit 0; fi
echo "tar: missing: Not found in archive" >&2
exit 2`)
	testutil.PrependPath(t, bin)

	u := newTestUnpacker(t, Config{})
	_, err := unpackBytes(t, u, []byte("ignored"), "a.tar", "missing")
	assertKind(t, err, KindExtractionFailed)

	var unpackErr *Error
	if !errors.As(err, &unpackErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if unpackErr.ExitCode != 2 {
		t.Errorf("ExitCode = %d, want 2", unpackErr.ExitCode)
	}
	if unpackErr.Stderr != "tar: missing: Not found in archive" {
		t.Errorf("Stderr = %q", unpackErr.Stderr)
	}
	if unpackErr.Command[len(unpackErr.Command)-1] != "missing" {
		t.Errorf("Command = %v", unpackErr.Command)
	}
}

func TestRealGNUTar(t *testing.T) {
	requireGNUTar(t)
	u := newTestUnpacker(t, Config{})
	data := testutil.Gzip(t, testutil.Tar(t, testutil.SampleTree()))

	whole, err := unpackBytes(t, u, data, "sample.tar.gz", "")
	if err != nil {
		t.Fatalf("Unpack() failed: %v", err)
	}
	sub, err := unpackBytes(t, u, data, "sample.tar.gz", "HelloWorld")
	if err != nil {
		t.Fatalf("Unpack(extract) failed: %v", err)
	}
	if a, b := testutil.Manifest(t, filepath.Join(whole, "HelloWorld")), testutil.Manifest(t, filepath.Join(sub, "HelloWorld")); a != b {
		t.Errorf("subtree differs:\n%s\n---\n%s", a, b)
	}
	assertSampleDigests(t, u, "sample.tar.gz")

	_, err = unpackBytes(t, u, data, "sample.tar.gz", "missing")
	assertKind(t, err, KindExtractionFailed)
}
