package unpack

import (
	"context"
	"io"
	"path/filepath"
)

func (u *Unpacker) extractZip(ctx context.Context, stream io.ReadSeeker, dest, extract string, offset int64) error {
	if err := validateExtract(extract); err != nil {
		return err
	}

	const archiveName = "archive.zip"
	archive := filepath.Join(dest, archiveName)
	if err := copyToFile(stream, offset, archive); err != nil {
		return err
	}
	defer u.removeQuietly(archive)

	args := []string{"unzip", "-q", "-o", archiveName}
	if extract != "" {
		args = append(args, extract+"/*")
	}
	_, err := u.run(ctx, dest, nil, 0, args...)
	return err
}
