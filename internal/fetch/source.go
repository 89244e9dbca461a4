package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
)

// Source is an opened archive, either a local file or a downloaded copy.
type Source struct {
	*os.File
	// URL is the remote location, empty for local files.
	URL string

	temporary bool
}

// Close closes the file and removes it if it was downloaded.
func (s *Source) Close() error {
	err := s.File.Close()
	if s.temporary {
		if rmErr := os.Remove(s.File.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			err = errors.Join(err, fmt.Errorf("remove download: %w", rmErr))
		}
	}
	return err
}

// IsRemote reports whether source names an http or https URL.
func IsRemote(source string) bool {
	u, err := url.Parse(source)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return (scheme == "http" || scheme == "https") && u.Host != ""
}

// Open returns source as a seekable file. http and https URLs are
// downloaded first; anything else is opened as a local path.
func (d *Downloader) Open(ctx context.Context, source string) (*Source, error) {
	if IsRemote(source) {
		f, err := d.Fetch(ctx, source)
		if err != nil {
			return nil, err
		}
		return &Source{File: f, URL: source, temporary: true}, nil
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat source: %w", err)
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("open source: %s is a directory", source)
	}
	return &Source{File: f}, nil
}
