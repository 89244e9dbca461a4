// Package unpack extracts software archives into directories.
//
// An archive arrives as a seekable stream together with the URL it was
// fetched from. The format is taken from an explicit MIME type or guessed
// from the URL's extension, the external tools the format needs are
// checked, and the archive (or a single top-level subtree of it) is
// extracted into an existing destination directory.
//
// # Formats
//
// Tar archives, optionally compressed with gzip, bzip2, lzma or xz, are
// extracted with GNU tar when it is installed and otherwise in-process.
// The in-process path normalizes permissions (anything executable becomes
// executable by all, everything readable by all, subject to the umask),
// assigns files to the current user and restores stored modification
// times, so the same archive always produces the same tree.
//
// Zip, Cabinet, Apple Disk Image, Debian and RPM packages are extracted
// with unzip, cabextract, hdiutil, ar and rpm2cpio/cpio respectively. Ruby
// gems are tar archives whose data.tar.gz member holds the payload.
//
// # Errors
//
// Failures are reported as *Error values with a Kind; use IsKind or
// errors.As to inspect them. Validation failures (unknown format, missing
// tool, illegal subpath) happen before anything is written or run.
//
// # Usage
//
//	u, err := unpack.New(unpack.Config{Logger: logger})
//	if err != nil {
//	    return err
//	}
//
//	err = u.Unpack(ctx, unpack.Request{
//	    SourceURL: "https://example.com/hello-1.0.tar.gz",
//	    Stream:    f,
//	    Dest:      dir,
//	    Extract:   "hello-1.0",
//	})
package unpack
