// Package source retrieves the raw bytes of a data source given its location: a local path, an
// http(s) URL or an s3://bucket/key object.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
)

// ErrUnsupportedScheme is returned for locations whose scheme has no fetcher.
var ErrUnsupportedScheme = errors.New("unsupported source scheme")

// ErrTooLarge is returned when a source exceeds the configured byte cap.
var ErrTooLarge = errors.New("source exceeds size limit")

// DefaultMaxBytes caps a single source when a fetcher has no explicit limit.
const DefaultMaxBytes int64 = 256 << 20

// readLimited reads at most limit bytes (DefaultMaxBytes when limit <= 0) and fails with ErrTooLarge past that.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w (%d bytes)", ErrTooLarge, limit)
	}
	return data, nil
}

// Fetcher returns the full content of a location.
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// FileFetcher reads local paths and file:// URLs.
type FileFetcher struct {
	MaxBytes int64
}

func (f FileFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := strings.TrimPrefix(location, "file://")
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	defer fh.Close()
	data, err := readLimited(fh, f.MaxBytes)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// HTTPFetcher downloads http(s) URLs. Non-2xx statuses are errors.
type HTTPFetcher struct {
	Client   *http.Client
	MaxBytes int64
}

func (f HTTPFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", location, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", location, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("get %s: status %s", location, resp.Status)
	}
	data, err := readLimited(resp.Body, f.MaxBytes)
	if err != nil {
		return nil, fmt.Errorf("read body %s: %w", location, err)
	}
	return data, nil
}

// Router dispatches on the location scheme. A nil S3 fetcher makes s3:// unsupported.
type Router struct {
	File Fetcher
	HTTP Fetcher
	S3   Fetcher
}

// NewRouter wires the local and HTTP fetchers; callers attach S3 when configured.
// maxBytes caps every source read; zero means DefaultMaxBytes.
func NewRouter(client *http.Client, maxBytes int64) *Router {
	return &Router{
		File: FileFetcher{MaxBytes: maxBytes},
		HTTP: HTTPFetcher{Client: client, MaxBytes: maxBytes},
	}
}

func (r *Router) Fetch(ctx context.Context, location string) ([]byte, error) {
	switch scheme(location) {
	case "", "file":
		return r.File.Fetch(ctx, location)
	case "http", "https":
		return r.HTTP.Fetch(ctx, location)
	case "s3":
		if r.S3 == nil {
			return nil, fmt.Errorf("%s: %w (s3 not configured)", location, ErrUnsupportedScheme)
		}
		return r.S3.Fetch(ctx, location)
	default:
		return nil, fmt.Errorf("%s: %w", location, ErrUnsupportedScheme)
	}
}

// scheme returns the lowercase URL scheme, or "" for plain paths (including Windows drive letters).
func scheme(location string) string {
	u, err := url.Parse(location)
	if err != nil || len(u.Scheme) <= 1 {
		return ""
	}
	return strings.ToLower(u.Scheme)
}
