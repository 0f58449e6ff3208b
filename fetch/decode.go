package fetch

import (
	"bytes"
	"image"
	"io"

	// Registered image formats.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Decode reads an image in any supported format from r.
// The returned string is the format name as registered with package image.
func Decode(r io.Reader) (image.Image, string, error) {
	return image.Decode(r)
}

// DecodeConfig returns the dimensions and format of an encoded image
// without decoding its pixels.
func DecodeConfig(data []byte) (image.Config, string, error) {
	return image.DecodeConfig(bytes.NewReader(data))
}

// decode decodes data and wraps failures in a DecodeError for url.
func decode(url string, data []byte) (image.Image, error) {
	img, format, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{URL: url, Err: err}
	}
	Logger().Debug("fetch: decoded", "url", url, "format", format,
		"width", img.Bounds().Dx(), "height", img.Bounds().Dy())
	return img, nil
}
