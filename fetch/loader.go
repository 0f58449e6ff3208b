package fetch

import (
	"context"
	"fmt"
	"image"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"
)

const (
	// DefaultTimeout bounds a single HTTP request made by a Loader.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBytes is the largest body a Loader reads.
	DefaultMaxBytes = 32 << 20
)

// Loader is the default Fetcher. It reads http and https URLs with an
// *http.Client, file URLs and plain paths from disk or from an fs.FS.
type Loader struct {
	client   *http.Client
	fsys     fs.FS
	maxBytes int64
	headers  map[string]string
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithHTTPClient sets the client used for http and https URLs.
func WithHTTPClient(c *http.Client) LoaderOption {
	return func(l *Loader) {
		if c != nil {
			l.client = c
		}
	}
}

// WithFS roots plain paths and file URLs in fsys instead of the OS
// file system.
func WithFS(fsys fs.FS) LoaderOption {
	return func(l *Loader) {
		l.fsys = fsys
	}
}

// WithMaxBytes limits the size of a single body. n <= 0 keeps the default.
func WithMaxBytes(n int64) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.maxBytes = n
		}
	}
}

// WithHeader adds a header to every HTTP request.
func WithHeader(key, value string) LoaderOption {
	return func(l *Loader) {
		l.headers[key] = value
	}
}

// NewLoader creates a Loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		client:   &http.Client{Timeout: DefaultTimeout},
		maxBytes: DefaultMaxBytes,
		headers:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Fetch reads and decodes the image at rawURL.
func (l *Loader) Fetch(ctx context.Context, rawURL string) (image.Image, error) {
	data, err := l.Read(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return decode(rawURL, data)
}

// Read returns the raw bytes at rawURL without decoding them.
func (l *Loader) Read(ctx context.Context, rawURL string) ([]byte, error) {
	if rawURL == "" {
		return nil, ErrEmptyURL
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scheme, rest, ok := strings.Cut(rawURL, "://")
	if !ok {
		return l.readFile(rawURL)
	}
	switch strings.ToLower(scheme) {
	case "http", "https":
		return l.readHTTP(ctx, rawURL)
	case "file":
		u, err := url.Parse(rawURL)
		if err != nil {
			return nil, fmt.Errorf("fetch: parse %s: %w", rawURL, err)
		}
		p := u.Path
		if p == "" {
			p = rest
		}
		return l.readFile(p)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
	}
}

func (l *Loader) readHTTP(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: request %s: %w", rawURL, err)
	}
	for k, v := range l.headers {
		req.Header.Set(k, v)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: get %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: rawURL, Code: resp.StatusCode}
	}
	return l.readAll(rawURL, resp.Body)
}

func (l *Loader) readFile(name string) ([]byte, error) {
	if l.fsys == nil {
		f, err := os.Open(name)
		if err != nil {
			return nil, fmt.Errorf("fetch: %w", err)
		}
		defer f.Close()
		return l.readAll(name, f)
	}

	// fs.FS paths are unrooted and slash-separated.
	p := strings.TrimPrefix(path.Clean("/"+name), "/")
	if p == "" {
		p = "."
	}
	f, err := l.fsys.Open(p)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer f.Close()
	return l.readAll(name, f)
}

// readAll reads r up to the size limit.
func (l *Loader) readAll(name string, r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, l.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("fetch: read %s: %w", name, err)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("%w: %s", ErrTooLarge, name)
	}
	return data, nil
}

var _ Fetcher = (*Loader)(nil)
