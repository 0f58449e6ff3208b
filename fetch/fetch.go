// Package fetch loads sprite bitmaps for atlas patching.
//
// A Fetcher turns a locator into a decoded image. Loader understands
// http(s) URLs, file:// URLs and plain paths, the latter optionally rooted
// in an fs.FS. Cached wraps any Fetcher with an LRU of decoded images and
// collapses concurrent requests for the same locator into one.
//
// Supported formats: PNG, JPEG, GIF, WebP, BMP and TIFF.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"image"
)

// Fetcher loads and decodes the bitmap identified by url.
//
// Implementations must be safe for concurrent use and should return
// promptly once ctx is canceled.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (image.Image, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, url string) (image.Image, error)

// Fetch calls f(ctx, url).
func (f FetcherFunc) Fetch(ctx context.Context, url string) (image.Image, error) {
	return f(ctx, url)
}

var (
	// ErrUnsupportedScheme is returned for URL schemes Loader cannot handle.
	ErrUnsupportedScheme = errors.New("fetch: unsupported url scheme")

	// ErrTooLarge is returned when a body exceeds Loader's size limit.
	ErrTooLarge = errors.New("fetch: body exceeds size limit")

	// ErrEmptyURL is returned for an empty locator.
	ErrEmptyURL = errors.New("fetch: empty url")
)

// StatusError reports a non-200 HTTP response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch: %s: http status %d", e.URL, e.Code)
}

// DecodeError reports a body that could not be decoded as an image.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return "fetch: decode " + e.URL + ": " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
