package unpack

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	securejoin "github.com/cyphar/filepath-securejoin"
)

// dirTimes records a directory whose mode and mtime are applied once every
// entry has been written, so a read-only directory can still be filled.
type dirTimes struct {
	path  string
	mode  os.FileMode
	mtime time.Time
}

// extractTarPortable unpacks a tar stream without any external tar. Modes
// are normalized against the process umask and ownership is always the
// effective user.
func (u *Unpacker) extractTarPortable(ctx context.Context, stream io.ReadSeeker, dest, extract string, c Compression, offset int64) error {
	u.log.Debug("extracting with portable tar", "compression", c.String(), "extract", extract)

	var r io.Reader
	switch c {
	case CompressionLzma, CompressionXz:
		tmp, err := u.decodeToTemp(ctx, stream, offset, c)
		if err != nil {
			return err
		}
		defer tmp.Cleanup()
		r = tmp
	default:
		if err := seekTo(stream, offset); err != nil {
			return err
		}
		decoded, closer, err := newDecoder(stream, c)
		if err != nil {
			return err
		}
		defer closer()
		r = decoded
	}

	x := &tarWriter{
		u:       u,
		dest:    dest,
		extract: extract,
		umask:   os.FileMode(currentUmask()),
	}
	x.uid, x.gid = effectiveIDs()
	return x.extractAll(ctx, tar.NewReader(r))
}

type tarWriter struct {
	u        *Unpacker
	dest     string
	extract  string
	umask    os.FileMode
	uid, gid int

	matched int
	dirs    []dirTimes
}

func (x *tarWriter) extractAll(ctx context.Context, tr *tar.Reader) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read tar entry: %w", err)
		}

		if hdr.Typeflag == tar.TypeXGlobalHeader {
			continue
		}
		name := strings.TrimSuffix(hdr.Name, "/")
		if !x.selected(name) {
			continue
		}
		x.matched++

		if err := x.writeEntry(hdr, name, tr); err != nil {
			return err
		}
	}

	if err := x.finishDirs(); err != nil {
		return err
	}
	if x.extract != "" && x.matched == 0 {
		return newError(KindNotFound, "unable to find specified file = %s in archive", x.extract)
	}
	return nil
}

func (x *tarWriter) selected(name string) bool {
	if x.extract == "" {
		return true
	}
	return name == x.extract || strings.HasPrefix(name, x.extract+"/")
}

func (x *tarWriter) writeEntry(hdr *tar.Header, name string, r io.Reader) error {
	target, err := x.resolve(name)
	if err != nil {
		return fmt.Errorf("resolve tar entry %q: %w", hdr.Name, err)
	}
	mode := normalizeMode(os.FileMode(hdr.Mode), x.umask, hdr.Typeflag == tar.TypeDir)

	switch hdr.Typeflag {
	case tar.TypeDir:
		if info, err := os.Lstat(target); err == nil && !info.IsDir() {
			if err := os.Remove(target); err != nil {
				return fmt.Errorf("replace %s: %w", name, err)
			}
		}
		if err := os.MkdirAll(target, 0o700); err != nil {
			return fmt.Errorf("create directory %s: %w", name, err)
		}
		x.dirs = append(x.dirs, dirTimes{path: target, mode: mode, mtime: hdr.ModTime})

	case tar.TypeReg:
		if err := x.prepareParent(target); err != nil {
			return err
		}
		if err := writeFile(target, r); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		if err := os.Chmod(target, mode); err != nil {
			return fmt.Errorf("set mode of %s: %w", name, err)
		}
		if err := os.Chtimes(target, hdr.ModTime, hdr.ModTime); err != nil {
			return fmt.Errorf("set mtime of %s: %w", name, err)
		}

	case tar.TypeSymlink:
		if err := x.prepareParent(target); err != nil {
			return err
		}
		if err := os.Symlink(hdr.Linkname, target); err != nil {
			return fmt.Errorf("create symlink %s: %w", name, err)
		}

	case tar.TypeLink:
		source, err := x.resolve(strings.TrimSuffix(hdr.Linkname, "/"))
		if err != nil {
			return fmt.Errorf("resolve hard link target %q: %w", hdr.Linkname, err)
		}
		if err := x.prepareParent(target); err != nil {
			return err
		}
		if err := os.Link(source, target); err != nil {
			return fmt.Errorf("create hard link %s: %w", name, err)
		}

	default:
		x.u.log.Debug("skipping unsupported tar entry", "name", hdr.Name, "type", string(hdr.Typeflag))
		return nil
	}

	if err := lchown(target, x.uid, x.gid); err != nil {
		x.u.log.Debug("failed to set owner", "path", target, "error", err)
	}
	return nil
}

// resolve maps an entry name to a path below dest. Symlinks in the parent
// directories are followed but kept inside dest; the final component is
// never followed, so an entry replaces a symlink rather than writing
// through it.
func (x *tarWriter) resolve(name string) (string, error) {
	clean := filepath.Clean(string(filepath.Separator) + filepath.FromSlash(name))
	parent, err := securejoin.SecureJoin(x.dest, filepath.Dir(clean))
	if err != nil {
		return "", err
	}
	if clean == string(filepath.Separator) {
		return parent, nil
	}
	return filepath.Join(parent, filepath.Base(clean)), nil
}

// prepareParent creates the parent of target and clears anything already
// at target, as tar does when an archive overwrites a file.
func (x *tarWriter) prepareParent(target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("replace %s: %w", target, err)
	}
	return nil
}

// finishDirs applies directory modes and mtimes, deepest first so setting a
// child's mtime cannot disturb its parent's.
func (x *tarWriter) finishDirs() error {
	for i := len(x.dirs) - 1; i >= 0; i-- {
		d := x.dirs[i]
		// A later entry may have replaced the directory.
		if info, err := os.Lstat(d.path); err != nil || !info.IsDir() {
			continue
		}
		if err := os.Chmod(d.path, d.mode); err != nil {
			return fmt.Errorf("set mode of %s: %w", d.path, err)
		}
		if err := os.Chtimes(d.path, d.mtime, d.mtime); err != nil {
			return fmt.Errorf("set mtime of %s: %w", d.path, err)
		}
		if err := lchown(d.path, x.uid, x.gid); err != nil {
			x.u.log.Debug("failed to set owner", "path", d.path, "error", err)
		}
	}
	return nil
}

// normalizeMode makes an entry executable by everyone if it was executable
// by anyone, and readable and writable by everyone the umask allows.
// Directories are always executable so they stay traversable.
func normalizeMode(mode, umask os.FileMode, dir bool) os.FileMode {
	perm := mode & 0o777
	if dir || perm&0o111 != 0 {
		perm |= 0o111
	}
	return ((perm | 0o666) &^ umask) & 0o777
}

func writeFile(path string, r io.Reader) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
