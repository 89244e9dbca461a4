package testutil

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/blakesmith/ar"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"
)

// FixtureTime is the mtime given to fixture entries that don't set one.
var FixtureTime = time.Date(2010, time.June, 1, 12, 0, 0, 0, time.UTC)

// Entry is one member of a fixture archive. Directory names end in "/".
type Entry struct {
	Name    string
	Body    string
	Mode    int64
	Symlink string // target; makes the entry a symlink
	ModTime time.Time
}

// IsDir reports whether the entry is a directory.
func (e Entry) IsDir() bool {
	return len(e.Name) > 0 && e.Name[len(e.Name)-1] == '/'
}

func (e Entry) modTime() time.Time {
	if e.ModTime.IsZero() {
		return FixtureTime
	}
	return e.ModTime
}

// SampleTree is a small tree with an executable, a read-only file, a
// nested directory and a symlink, under a single top-level directory.
func SampleTree() []Entry {
	return []Entry{
		{Name: "HelloWorld/", Mode: 0o755},
		{Name: "HelloWorld/main", Body: "#!/bin/sh\necho Hello World\n", Mode: 0o700},
		{Name: "HelloWorld/README", Body: "Hello\n", Mode: 0o444},
		{Name: "HelloWorld/lib/", Mode: 0o700, ModTime: FixtureTime.Add(-time.Hour)},
		{Name: "HelloWorld/lib/data.txt", Body: "data\n", Mode: 0o644},
		{Name: "HelloWorld/run", Symlink: "main"},
		{Name: "other/", Mode: 0o755},
		{Name: "other/file", Body: "other\n", Mode: 0o600},
	}
}

// Tar builds an uncompressed tar archive of entries.
func Tar(t *testing.T, entries []Entry) []byte {
	t.Helper()

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, e := range entries {
		header := &tar.Header{
			Name:    e.Name,
			Mode:    e.Mode,
			ModTime: e.modTime(),
			Format:  tar.FormatPAX,
		}
		switch {
		case e.IsDir():
			header.Typeflag = tar.TypeDir
		case e.Symlink != "":
			header.Typeflag = tar.TypeSymlink
			header.Linkname = e.Symlink
			header.Mode = 0o777
		default:
			header.Typeflag = tar.TypeReg
			header.Size = int64(len(e.Body))
		}
		if err := tw.WriteHeader(header); err != nil {
			t.Fatalf("failed to write tar header %s: %v", e.Name, err)
		}
		if header.Typeflag == tar.TypeReg {
			if _, err := tw.Write([]byte(e.Body)); err != nil {
				t.Fatalf("failed to write tar content %s: %v", e.Name, err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("failed to close tar writer: %v", err)
	}
	return buf.Bytes()
}

// Gzip compresses data.
func Gzip(t *testing.T, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(data); err != nil {
		t.Fatalf("failed to gzip: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("failed to close gzip writer: %v", err)
	}
	return buf.Bytes()
}

// Xz compresses data in the xz container format.
func Xz(t *testing.T, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	xw, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatalf("failed to create xz writer: %v", err)
	}
	if _, err := xw.Write(data); err != nil {
		t.Fatalf("failed to xz: %v", err)
	}
	if err := xw.Close(); err != nil {
		t.Fatalf("failed to close xz writer: %v", err)
	}
	return buf.Bytes()
}

// Lzma compresses data in the legacy .lzma format.
func Lzma(t *testing.T, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	lw, err := lzma.NewWriter(&buf)
	if err != nil {
		t.Fatalf("failed to create lzma writer: %v", err)
	}
	if _, err := lw.Write(data); err != nil {
		t.Fatalf("failed to lzma: %v", err)
	}
	if err := lw.Close(); err != nil {
		t.Fatalf("failed to close lzma writer: %v", err)
	}
	return buf.Bytes()
}

// Zstd compresses data.
func Zstd(t *testing.T, data []byte) []byte {
	t.Helper()

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("failed to create zstd encoder: %v", err)
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil)
}

// Zip builds a zip archive of entries. Symlinks are left out.
func Zip(t *testing.T, entries []Entry) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		if e.Symlink != "" {
			continue
		}
		header := &zip.FileHeader{
			Name:     e.Name,
			Method:   zip.Deflate,
			Modified: e.modTime(),
		}
		if e.IsDir() {
			header.Method = zip.Store
		}
		header.SetMode(fileMode(e))
		w, err := zw.CreateHeader(header)
		if err != nil {
			t.Fatalf("failed to add zip entry %s: %v", e.Name, err)
		}
		if !e.IsDir() {
			if _, err := w.Write([]byte(e.Body)); err != nil {
				t.Fatalf("failed to write zip entry %s: %v", e.Name, err)
			}
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close zip writer: %v", err)
	}
	return buf.Bytes()
}

// ArMember is one member of an ar archive.
type ArMember struct {
	Name string
	Body []byte
}

// Ar builds a Unix ar archive.
func Ar(t *testing.T, members []ArMember) []byte {
	t.Helper()

	var buf bytes.Buffer
	aw := ar.NewWriter(&buf)
	if err := aw.WriteGlobalHeader(); err != nil {
		t.Fatalf("failed to write ar header: %v", err)
	}
	for _, m := range members {
		header := &ar.Header{
			Name:    m.Name,
			ModTime: FixtureTime,
			Mode:    0o644,
			Size:    int64(len(m.Body)),
		}
		if err := aw.WriteHeader(header); err != nil {
			t.Fatalf("failed to write ar member header %s: %v", m.Name, err)
		}
		if _, err := aw.Write(m.Body); err != nil {
			t.Fatalf("failed to write ar member %s: %v", m.Name, err)
		}
	}
	return buf.Bytes()
}

// Deb builds a Debian package whose payload is dataMember holding data.
func Deb(t *testing.T, dataMember string, data []byte) []byte {
	t.Helper()

	control := Gzip(t, Tar(t, []Entry{{Name: "./control", Body: "Package: test\n", Mode: 0o644}}))
	return Ar(t, []ArMember{
		{Name: "debian-binary", Body: []byte("2.0\n")},
		{Name: "control.tar.gz", Body: control},
		{Name: dataMember, Body: data},
	})
}

// Gem builds a Ruby gem whose payload holds entries.
func Gem(t *testing.T, entries []Entry) []byte {
	t.Helper()

	return Tar(t, []Entry{
		{Name: "metadata.gz", Body: string(Gzip(t, []byte("--- !ruby/object:Gem::Specification\n"))), Mode: 0o444},
		{Name: "data.tar.gz", Body: string(Gzip(t, Tar(t, entries))), Mode: 0o444},
	})
}

func fileMode(e Entry) (mode os.FileMode) {
	mode = os.FileMode(e.Mode) & os.ModePerm
	if e.IsDir() {
		mode |= os.ModeDir
	}
	return mode
}
