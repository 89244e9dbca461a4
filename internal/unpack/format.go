package unpack

import (
	"strconv"
	"strings"
)

// Format identifies an archive format. Values are the MIME types the
// format is published under, so a caller-supplied type can be used directly.
type Format string

const (
	FormatTar     Format = "application/x-tar"
	FormatTarGzip Format = "application/x-compressed-tar"
	FormatTarBzip Format = "application/x-bzip-compressed-tar"
	FormatTarLzma Format = "application/x-lzma-compressed-tar"
	FormatTarXz   Format = "application/x-xz-compressed-tar"
	FormatZip     Format = "application/zip"
	FormatCab     Format = "application/vnd.ms-cab-compressed"
	FormatDmg     Format = "application/x-apple-diskimage"
	FormatDeb     Format = "application/x-deb"
	FormatRpm     Format = "application/x-rpm"
	FormatGem     Format = "application/x-ruby-gem"
)

// Formats lists every supported format.
var Formats = []Format{
	FormatTar, FormatTarGzip, FormatTarBzip, FormatTarLzma, FormatTarXz,
	FormatZip, FormatCab, FormatDmg, FormatDeb, FormatRpm, FormatGem,
}

// suffixes is checked in order; the first match wins.
var suffixes = []struct {
	suffix string
	format Format
}{
	{".rpm", FormatRpm},
	{".deb", FormatDeb},
	{".tar.bz2", FormatTarBzip},
	{".tar.gz", FormatTarGzip},
	{".tar.lzma", FormatTarLzma},
	{".tar.xz", FormatTarXz},
	{".tbz", FormatTarBzip},
	{".tgz", FormatTarGzip},
	{".tlz", FormatTarLzma},
	{".txz", FormatTarXz},
	{".tar", FormatTar},
	{".zip", FormatZip},
	{".cab", FormatCab},
	{".dmg", FormatDmg},
	{".gem", FormatGem},
}

// String returns the MIME type.
func (f Format) String() string {
	return string(f)
}

// Valid reports whether f is one of the supported formats.
func (f Format) Valid() bool {
	for _, known := range Formats {
		if f == known {
			return true
		}
	}
	return false
}

// FormatFromURL guesses the format from the URL's extension. It returns
// false if the extension is not recognized.
func FormatFromURL(url string) (Format, bool) {
	lower := strings.ToLower(url)
	for _, s := range suffixes {
		if strings.HasSuffix(lower, s.suffix) {
			return s.format, true
		}
	}
	return "", false
}

// ResolveFormat returns override when set, otherwise the format guessed from
// url. It fails with KindUnknownFormat when neither yields a format.
func ResolveFormat(url string, override Format) (Format, error) {
	if override != "" {
		return override, nil
	}
	format, ok := FormatFromURL(url)
	if !ok {
		return "", newError(KindUnknownFormat, "unknown extension (and no MIME type given) in %q", url)
	}
	return format, nil
}

// Compression is the compression applied to a tar stream.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionBzip2
	CompressionLzma
	CompressionXz
	// CompressionZstd only occurs inside Debian packages (data.tar.zst).
	CompressionZstd
)

// String returns the string representation of the compression
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionGzip:
		return "gzip"
	case CompressionBzip2:
		return "bzip2"
	case CompressionLzma:
		return "lzma"
	case CompressionXz:
		return "xz"
	case CompressionZstd:
		return "zstd"
	default:
		panic("unpack: unknown compression " + strconv.Itoa(int(c)))
	}
}

// tarCompression maps a tar-family format to its compression.
func tarCompression(f Format) (Compression, bool) {
	switch f {
	case FormatTar:
		return CompressionNone, true
	case FormatTarGzip:
		return CompressionGzip, true
	case FormatTarBzip:
		return CompressionBzip2, true
	case FormatTarLzma:
		return CompressionLzma, true
	case FormatTarXz:
		return CompressionXz, true
	default:
		return 0, false
	}
}
