package unpack

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

func (u *Unpacker) extractRpm(ctx context.Context, stream io.ReadSeeker, dest, extract string, offset int64) error {
	if err := CheckExtract(FormatRpm, extract); err != nil {
		return err
	}

	cpio, err := createTemp("*-rpm-tmp")
	if err != nil {
		return err
	}
	defer cpio.Cleanup()

	if err := u.pipeToFile(ctx, stream, offset, cpio.File, "rpm2cpio failed; can't unpack RPM archive", "rpm2cpio", "-"); err != nil {
		return err
	}

	args := []string{"cpio", "-mid"}
	if u.caps.GNUCpio(ctx) {
		args = append(args, "--quiet")
	}
	if _, err := u.run(ctx, dest, cpio, 0, args...); err != nil {
		return err
	}

	// cpio sets mtimes of directories it creates to now; reset them so the
	// result does not depend on when it was unpacked.
	return resetDirTimes(dest)
}

// resetDirTimes sets the access and modification times of root and every
// directory below it to the Unix epoch.
func resetDirTimes(root string) error {
	epoch := time.Unix(0, 0)
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := os.Chtimes(path, epoch, epoch); err != nil {
			return fmt.Errorf("reset mtime of %s: %w", path, err)
		}
		return nil
	})
}
