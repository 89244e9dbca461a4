package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestDownloader(t *testing.T) *Downloader {
	t.Helper()
	d := NewDownloader(t.TempDir(), nil)
	d.backoff = time.Millisecond
	return d
}

func TestDownloaderFetch(t *testing.T) {
	tests := []struct {
		name         string
		statusCode   int
		body         string
		wantErr      bool
		wantAttempts int32
	}{
		{
			name:         "successful_download",
			statusCode:   http.StatusOK,
			body:         "test archive content",
			wantAttempts: 1,
		},
		{
			name:         "404_not_retried",
			statusCode:   http.StatusNotFound,
			body:         "not found",
			wantErr:      true,
			wantAttempts: 1,
		},
		{
			name:         "500_retried",
			statusCode:   http.StatusInternalServerError,
			body:         "server error",
			wantErr:      true,
			wantAttempts: 2,
		},
		{
			name:         "429_retried",
			statusCode:   http.StatusTooManyRequests,
			wantErr:      true,
			wantAttempts: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var attempts atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				attempts.Add(1)
				if r.Header.Get("User-Agent") != DefaultUserAgent {
					t.Errorf("unexpected User-Agent: %s", r.Header.Get("User-Agent"))
				}
				w.WriteHeader(tt.statusCode)
				if _, err := w.Write([]byte(tt.body)); err != nil {
					t.Errorf("failed to write response: %v", err)
				}
			}))
			defer server.Close()

			downloader := newTestDownloader(t)
			// Reduce retries for faster tests
			downloader.retries = 1

			f, err := downloader.Fetch(context.Background(), server.URL)
			if got := attempts.Load(); got != tt.wantAttempts {
				t.Errorf("attempts = %d, want %d", got, tt.wantAttempts)
			}

			if tt.wantErr {
				if err == nil {
					f.Close()
					t.Fatal("expected error but got none")
				}
				assertNoDownloads(t, downloader.tempDir)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer os.Remove(f.Name())
			defer f.Close()

			content, err := io.ReadAll(f)
			if err != nil {
				t.Fatalf("failed to read download: %v", err)
			}
			if string(content) != tt.body {
				t.Errorf("content mismatch:\ngot:  %q\nwant: %q", content, tt.body)
			}
		})
	}
}

func TestDownloaderRetryLogic(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := attempts.Add(1)
		if n < 3 {
			// A partial body from a failed attempt must not leak into the result
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("garbage"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("success"))
	}))
	defer server.Close()

	downloader := newTestDownloader(t)
	downloader.retries = 3

	f, err := downloader.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("expected success after retries, got error: %v", err)
	}
	defer os.Remove(f.Name())
	defer f.Close()

	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts.Load())
	}
	content, _ := io.ReadAll(f)
	if string(content) != "success" {
		t.Errorf("content = %q, want %q", content, "success")
	}
}

func TestDownloaderRetriesExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	downloader := newTestDownloader(t)
	downloader.retries = 2

	_, err := downloader.Fetch(context.Background(), server.URL)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "after 2 retries") {
		t.Errorf("error = %v", err)
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusBadGateway {
		t.Errorf("expected StatusError 502, got %v", err)
	}
}

func TestDownloaderContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	downloader := newTestDownloader(t)
	downloader.backoff = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := downloader.Fetch(ctx, server.URL)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 10*time.Second {
		t.Error("cancellation did not interrupt the backoff")
	}
	assertNoDownloads(t, downloader.tempDir)
}

func TestDownloaderTooManyRedirects(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, server.URL+"/again", http.StatusFound)
	}))
	defer server.Close()

	downloader := newTestDownloader(t)
	downloader.retries = 0

	_, err := downloader.Fetch(context.Background(), server.URL)
	if err == nil || !strings.Contains(err.Error(), "too many redirects") {
		t.Errorf("expected redirect error, got %v", err)
	}
}

func TestStatusErrorTemporary(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{http.StatusNotFound, false},
		{http.StatusForbidden, false},
		{http.StatusRequestTimeout, true},
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusServiceUnavailable, true},
	}
	for _, tt := range tests {
		err := &StatusError{URL: "http://example.com", StatusCode: tt.code}
		if got := err.Temporary(); got != tt.want {
			t.Errorf("Temporary(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func assertNoDownloads(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read temp dir: %v", err)
	}
	for _, e := range entries {
		t.Errorf("download left behind: %s", e.Name())
	}
}
