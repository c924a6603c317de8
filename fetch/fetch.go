// Package fetch retrieves the raw bytes of sample files, either over HTTP or
// from a directory.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"
)

type (
	// Fetcher retrieves the bytes at a location. Locations are relative to
	// the root of the fetcher, unless they are absolute URLs.
	Fetcher interface {
		Fetch(ctx context.Context, location string) ([]byte, error)
	}

	// StatusError is returned when the location answered with a non-success
	// status.
	StatusError struct {
		Location   string
		StatusCode int
	}

	// HTTP fetches locations relative to a base URL.
	HTTP struct {
		Base   *url.URL
		Client *http.Client
	}

	// Dir fetches locations from a file system. A missing file is reported as
	// a StatusError with http.StatusNotFound, so callers can treat both
	// fetchers alike.
	Dir struct {
		FS fs.FS
	}
)

const defaultTimeout = 30 * time.Second

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetching %v: status %d %s", e.Location, e.StatusCode, http.StatusText(e.StatusCode))
}

// New returns an HTTP fetcher if root is an http(s) URL and a Dir fetcher
// rooted at the directory root otherwise.
func New(root string) (Fetcher, error) {
	if strings.HasPrefix(root, "http://") || strings.HasPrefix(root, "https://") {
		return NewHTTP(root)
	}
	if root == "" {
		root = "."
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("asset root %v: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("asset root %v is not a directory", root)
	}
	return &Dir{FS: os.DirFS(root)}, nil
}

func NewHTTP(base string) (*HTTP, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %v: %w", base, err)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return &HTTP{Base: u, Client: &http.Client{Timeout: defaultTimeout}}, nil
}

func (h *HTTP) Fetch(ctx context.Context, location string) ([]byte, error) {
	ref, err := url.Parse(strings.TrimPrefix(location, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid location %v: %w", location, err)
	}
	u := ref
	if h.Base != nil {
		u = h.Base.ResolveReference(ref)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %v: %w", u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Location: u.String(), StatusCode: resp.StatusCode}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %v: %w", u, err)
	}
	return data, nil
}

func (d *Dir) Fetch(ctx context.Context, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := path.Clean(strings.TrimPrefix(location, "/"))
	if !fs.ValidPath(name) {
		return nil, &StatusError{Location: location, StatusCode: http.StatusBadRequest}
	}
	data, err := fs.ReadFile(d.FS, name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &StatusError{Location: location, StatusCode: http.StatusNotFound}
	}
	if err != nil {
		return nil, fmt.Errorf("read %v: %w", location, err)
	}
	return data, nil
}
