package unpack

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// debDataMembers are the payload member names dpkg writes, with the
// compression each implies.
var debDataMembers = map[string]Compression{
	"data.tar":      CompressionNone,
	"data.tar.gz":   CompressionGzip,
	"data.tar.bz2":  CompressionBzip2,
	"data.tar.lzma": CompressionLzma,
	"data.tar.xz":   CompressionXz,
	"data.tar.zst":  CompressionZstd,
}

func (u *Unpacker) extractDeb(ctx context.Context, stream io.ReadSeeker, dest, extract string, offset int64) error {
	if err := CheckExtract(FormatDeb, extract); err != nil {
		return err
	}

	const archiveName = "archive.deb"
	archive := filepath.Join(dest, archiveName)
	if err := copyToFile(stream, offset, archive); err != nil {
		return err
	}
	defer u.removeQuietly(archive)

	out, err := u.run(ctx, dest, nil, 0, "ar", "t", archiveName)
	if err != nil {
		return err
	}
	member, compression, ok := findDataMember(string(out))
	if !ok {
		return newError(KindNotADebPackage, "file does not appear to be a Debian package")
	}
	u.log.Debug("found deb payload", "member", member, "compression", compression.String())

	if _, err := u.run(ctx, dest, nil, 0, "ar", "x", archiveName, member); err != nil {
		return err
	}
	payloadPath := filepath.Join(dest, member)
	defer u.removeQuietly(payloadPath)
	u.removeQuietly(archive)

	payload, err := os.Open(payloadPath)
	if err != nil {
		return fmt.Errorf("open deb payload: %w", err)
	}
	defer payload.Close()
	// The open handle keeps the data; the name must not appear in dest.
	u.removeQuietly(payloadPath)

	return u.extractTar(ctx, payload, dest, "", compression, 0)
}

// findDataMember picks the first data.tar member from an `ar t` listing.
func findDataMember(listing string) (string, Compression, bool) {
	for _, line := range strings.Split(listing, "\n") {
		name := strings.TrimSpace(line)
		if c, ok := debDataMembers[name]; ok {
			return name, c, true
		}
	}
	return "", 0, false
}
