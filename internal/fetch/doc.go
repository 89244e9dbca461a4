// Package fetch turns an archive source given on the command line into a
// seekable file.
//
// Local paths are opened directly. http and https URLs are downloaded into
// a temporary file with retries and exponential backoff; server errors and
// 408/429 responses are retried, other client errors fail immediately.
//
//	d := fetch.NewDownloader("", logger)
//	src, err := d.Open(ctx, "https://example.com/app-1.0.tar.gz")
//	if err != nil {
//		return err
//	}
//	defer src.Close() // removes the download
package fetch
