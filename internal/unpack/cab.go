package unpack

import (
	"context"
	"io"
	"path/filepath"
)

func (u *Unpacker) extractCab(ctx context.Context, stream io.ReadSeeker, dest, extract string, offset int64) error {
	if err := CheckExtract(FormatCab, extract); err != nil {
		return err
	}

	const archiveName = "archive.cab"
	archive := filepath.Join(dest, archiveName)
	if err := copyToFile(stream, offset, archive); err != nil {
		return err
	}
	defer u.removeQuietly(archive)

	_, err := u.run(ctx, dest, nil, 0, "cabextract", "-s", "-q", archiveName)
	return err
}
