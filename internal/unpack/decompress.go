package unpack

import (
	"compress/bzip2"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"
)

// decompressors names the external program used for compressions that
// tar cannot handle with a built-in flag.
var decompressors = map[Compression]string{
	CompressionLzma: "unlzma",
	CompressionXz:   "unxz",
	CompressionZstd: "unzstd",
}

// decompressor finds an external program for c: the system's own, then a
// helper named "_<program>" in the configured helpers directory. It returns
// "" when neither exists.
func (u *Unpacker) decompressor(c Compression) string {
	name, ok := decompressors[c]
	if !ok {
		return ""
	}
	if path, ok := u.caps.LookPath(name); ok {
		return path
	}
	if u.helpersDir != "" {
		helper := filepath.Join(u.helpersDir, "_"+name)
		if info, err := os.Stat(helper); err == nil && info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0 {
			return helper
		}
	}
	return ""
}

// decodeToTemp decompresses stream, from offset, into a scratch file
// positioned at its start. An external decompressor is preferred; without
// one the stream is decoded in-process. The caller must Cleanup the file.
func (u *Unpacker) decodeToTemp(ctx context.Context, stream io.ReadSeeker, offset int64, c Compression) (*tempFile, error) {
	tmp, err := createTemp("*.tar")
	if err != nil {
		return nil, err
	}

	if err := u.decodeInto(ctx, stream, offset, c, tmp.File); err != nil {
		tmp.Cleanup()
		return nil, err
	}
	if err := seekTo(tmp, 0); err != nil {
		tmp.Cleanup()
		return nil, err
	}
	return tmp, nil
}

func (u *Unpacker) decodeInto(ctx context.Context, stream io.ReadSeeker, offset int64, c Compression, out *os.File) error {
	if program := u.decompressor(c); program != "" {
		return u.pipeToFile(ctx, stream, offset, out, fmt.Sprintf("%s failed", filepath.Base(program)), program)
	}

	u.log.Debug("no external decompressor, decoding in-process", "compression", c.String())
	if err := seekTo(stream, offset); err != nil {
		return err
	}
	r, closer, err := newDecoder(stream, c)
	if err != nil {
		return err
	}
	defer closer()
	if _, err := io.Copy(out, r); err != nil {
		return fmt.Errorf("decompress %s stream: %w", c, err)
	}
	return nil
}

// newDecoder wraps r in an in-process decoder for c. The returned func
// releases decoder resources.
func newDecoder(r io.Reader, c Compression) (io.Reader, func(), error) {
	noop := func() {}
	switch c {
	case CompressionNone:
		return r, noop, nil
	case CompressionGzip:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("create gzip reader: %w", err)
		}
		return gz, func() { gz.Close() }, nil
	case CompressionBzip2:
		return bzip2.NewReader(r), noop, nil
	case CompressionLzma:
		lr, err := lzma.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("create lzma reader: %w", err)
		}
		return lr, noop, nil
	case CompressionXz:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("create xz reader: %w", err)
		}
		return xr, noop, nil
	case CompressionZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("create zstd reader: %w", err)
		}
		return zr, zr.Close, nil
	default:
		panic("unpack: unknown compression " + c.String())
	}
}
