package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 5 * time.Minute
	// DefaultRetries is the default number of download retries
	DefaultRetries = 3
	// DefaultUserAgent is the User-Agent header sent with requests
	DefaultUserAgent = "0store/1.0"
	// MaxRedirects is the number of redirects followed before giving up
	MaxRedirects = 10
)

// StatusError reports a response other than 200 OK.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d from %s", e.StatusCode, e.URL)
}

// Temporary reports whether a later attempt could succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 ||
		e.StatusCode == http.StatusRequestTimeout ||
		e.StatusCode == http.StatusTooManyRequests
}

// Downloader handles HTTP downloads with retry logic
type Downloader struct {
	client    *http.Client
	tempDir   string
	userAgent string
	retries   int
	backoff   time.Duration
	log       *slog.Logger
}

// NewDownloader creates a downloader that stores downloads in tempDir
// (os.TempDir() when empty). A nil logger discards records.
func NewDownloader(tempDir string, logger *slog.Logger) *Downloader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Downloader{
		client: &http.Client{
			Timeout: DefaultTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= MaxRedirects {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		tempDir:   tempDir,
		userAgent: DefaultUserAgent,
		retries:   DefaultRetries,
		backoff:   time.Second,
		log:       logger,
	}
}

// Fetch downloads url into a new temporary file and returns it positioned
// at the start. The caller must close and remove the file.
func (d *Downloader) Fetch(ctx context.Context, url string) (*os.File, error) {
	f, err := os.CreateTemp(d.tempDir, "0store-download-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}

	if err := d.downloadWithRetry(ctx, url, f); err != nil {
		return nil, errors.Join(err, f.Close(), os.Remove(f.Name()))
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Join(fmt.Errorf("rewind download: %w", err), f.Close(), os.Remove(f.Name()))
	}
	return f, nil
}

// downloadWithRetry writes url into f, truncating it before each attempt.
func (d *Downloader) downloadWithRetry(ctx context.Context, url string, f *os.File) error {
	var lastErr error

	for attempt := 0; attempt <= d.retries; attempt++ {
		// Check context before each attempt
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if attempt > 0 {
			// Exponential backoff: 1s, 2s, 4s
			backoff := d.backoff << uint(attempt-1)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := resetFile(f); err != nil {
			return err
		}

		err := d.downloadOnce(ctx, url, f)
		if err == nil {
			return nil
		}
		lastErr = err

		// Don't retry on context cancellation or client errors
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.Temporary() {
			return fmt.Errorf("download %s: %w", url, err)
		}
		d.log.Debug("download attempt failed", "url", url, "attempt", attempt+1, "error", err)
	}

	return fmt.Errorf("download failed after %d retries: %w", d.retries, lastErr)
}

// downloadOnce performs a single download attempt
func (d *Downloader) downloadOnce(ctx context.Context, url string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return fmt.Errorf("copy response body: %w", err)
	}
	if resp.ContentLength >= 0 && n != resp.ContentLength {
		return fmt.Errorf("short download: got %d of %d bytes", n, resp.ContentLength)
	}

	d.log.Debug("downloaded", "url", url, "bytes", n)
	return nil
}

func resetFile(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("truncate temp file: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind temp file: %w", err)
	}
	return nil
}
