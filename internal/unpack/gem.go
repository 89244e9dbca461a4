package unpack

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// gemPayload is the member of a gem's outer tar holding the packaged files.
const gemPayload = "data.tar.gz"

func (u *Unpacker) extractGem(ctx context.Context, stream io.ReadSeeker, dest, extract string, offset int64) error {
	if err := validateExtract(extract); err != nil {
		return err
	}

	tmp, err := os.MkdirTemp(dest, "gem")
	if err != nil {
		return fmt.Errorf("create gem staging directory: %w", err)
	}
	defer u.removeTree(tmp)

	if err := u.extractTar(ctx, stream, tmp, gemPayload, CompressionNone, offset); err != nil {
		return err
	}

	payload, err := os.Open(filepath.Join(tmp, gemPayload))
	if err != nil {
		return fmt.Errorf("open gem payload: %w", err)
	}
	defer payload.Close()

	return u.extractTar(ctx, payload, dest, extract, CompressionGzip, 0)
}
