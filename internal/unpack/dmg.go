package unpack

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// extractDmg mounts the image, copies its contents into dest and unmounts
// it again. Once attach has been attempted, detach and the removal of the
// mountpoint and the copy always run; their failures are joined with the
// primary error.
func (u *Unpacker) extractDmg(ctx context.Context, stream io.ReadSeeker, dest, extract string, offset int64) (err error) {
	if err := CheckExtract(FormatDmg, extract); err != nil {
		return err
	}

	const archiveName = "archive.dmg"
	archive := filepath.Join(dest, archiveName)
	if err := copyToFile(stream, offset, archive); err != nil {
		return err
	}
	defer func() {
		if rmErr := os.Remove(archive); rmErr != nil && !os.IsNotExist(rmErr) {
			err = errors.Join(err, fmt.Errorf("remove disk image copy: %w", rmErr))
		}
	}()

	mountpoint, err := os.MkdirTemp("", "archive")
	if err != nil {
		return fmt.Errorf("create mountpoint: %w", err)
	}
	defer func() {
		if rmErr := os.Remove(mountpoint); rmErr != nil && !os.IsNotExist(rmErr) {
			err = errors.Join(err, fmt.Errorf("remove mountpoint: %w", rmErr))
		}
	}()

	// Detach even when cancelled, or the image stays mounted.
	defer func() {
		if _, detachErr := u.run(context.WithoutCancel(ctx), dest, nil, 0, "hdiutil", "detach", "-quiet", mountpoint); detachErr != nil {
			err = errors.Join(err, detachErr)
		}
	}()
	if _, err := u.run(ctx, dest, nil, 0, "hdiutil", "attach", "-quiet", "-mountpoint", mountpoint, "-nobrowse", archiveName); err != nil {
		return err
	}

	entries, err := os.ReadDir(mountpoint)
	if err != nil {
		return fmt.Errorf("list disk image contents: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}
	args := []string{"cp", "-pR"}
	for _, entry := range entries {
		args = append(args, filepath.Join(mountpoint, entry.Name()))
	}
	args = append(args, dest)
	_, err = u.run(ctx, dest, nil, 0, args...)
	return err
}
