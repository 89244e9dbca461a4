package unpack

import (
	"context"
	"io"
	"regexp"
)

// extractPattern restricts subpaths handed to tools: no leading dash, no
// slashes, no shell or glob metacharacters.
var extractPattern = regexp.MustCompile(`^[A-Za-z0-9][-_A-Za-z0-9.]*$`)

// validateExtract rejects subpaths that could be read as options or
// patterns by an extraction tool. An empty subpath is always valid.
func validateExtract(extract string) error {
	if extract == "" || extractPattern.MatchString(extract) {
		return nil
	}
	return newError(KindIllegalExtractPath, "illegal character in extract attribute %q", extract)
}

// CheckExtract reports whether extract is acceptable for format: a valid
// subpath for formats that support one, empty for the rest.
func CheckExtract(format Format, extract string) error {
	if _, ok := tarCompression(format); ok {
		return validateExtract(extract)
	}
	switch format {
	case FormatZip, FormatGem:
		return validateExtract(extract)
	case FormatCab:
		return rejectExtract(extract, "Microsoft Cabinet files")
	case FormatDmg:
		return rejectExtract(extract, "Apple Disk Images")
	case FormatDeb:
		return rejectExtract(extract, "Debian packages")
	case FormatRpm:
		return rejectExtract(extract, "RPM packages")
	}
	return nil
}

// rejectExtract fails for formats that can only be extracted whole.
func rejectExtract(extract, what string) error {
	if extract == "" {
		return nil
	}
	return newError(KindUnsupportedExtractPath, "sorry, but the 'extract' attribute is not yet supported for %s", what)
}

// extractTar unpacks a tar stream, optionally compressed, into dest. When
// extract is set only that top-level entry and everything below it is
// written.
func (u *Unpacker) extractTar(ctx context.Context, stream io.ReadSeeker, dest, extract string, c Compression, offset int64) error {
	if err := validateExtract(extract); err != nil {
		return err
	}

	if !u.portableTar && u.caps.GNUTar(ctx) {
		return u.extractTarGNU(ctx, stream, dest, extract, c, offset)
	}
	return u.extractTarPortable(ctx, stream, dest, extract, c, offset)
}

func (u *Unpacker) extractTarGNU(ctx context.Context, stream io.ReadSeeker, dest, extract string, c Compression, offset int64) error {
	args := []string{"tar"}

	switch c {
	case CompressionNone:
	case CompressionGzip:
		args = append(args, "-z")
	case CompressionBzip2:
		args = append(args, "--bzip2")
	case CompressionLzma, CompressionXz, CompressionZstd:
		program := u.decompressor(c)
		if program == "" {
			tmp, err := u.decodeToTemp(ctx, stream, offset, c)
			if err != nil {
				return err
			}
			defer tmp.Cleanup()
			stream, offset = tmp, 0
			break
		}
		args = append(args, "--use-compress-program="+program)
	default:
		panic("unpack: unknown compression " + c.String())
	}

	if u.caps.RecentGNUTar(ctx) {
		args = append(args, "-x", "--no-same-owner", "--no-same-permissions", "-f", "-")
	} else {
		args = append(args, "-x", "-f", "-")
	}
	if extract != "" {
		args = append(args, extract)
	}

	u.log.Debug("extracting with GNU tar", "compression", c.String(), "extract", extract)
	_, err := u.run(ctx, dest, stream, offset, args...)
	return err
}
