// Package ingest turns uploaded files into in-memory bitmaps.
package ingest

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"

	"github.com/nfnt/resize"
)

var (
	ErrEmpty             = errors.New("uploaded file is empty")
	ErrTooLarge          = errors.New("uploaded file is too large")
	ErrUnsupportedFormat = errors.New("unsupported image format, expected JPEG or PNG")
)

// Upload is a decoded user image.
type Upload struct {
	Bitmap image.Image
	Format string
	Width  int
	Height int
}

// Decode reads at most maxBytes from r and decodes a JPEG or PNG image.
func Decode(r io.Reader, maxBytes int64) (*Upload, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if int64(len(data)) > maxBytes {
		return nil, ErrTooLarge
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, ErrUnsupportedFormat
		}
		return nil, fmt.Errorf("read image header: %w", err)
	}
	if format != "jpeg" && format != "png" {
		return nil, ErrUnsupportedFormat
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", format, err)
	}

	return &Upload{
		Bitmap: img,
		Format: format,
		Width:  cfg.Width,
		Height: cfg.Height,
	}, nil
}

// Preview downsizes img so that neither side exceeds maxSide and encodes it as JPEG.
func Preview(img image.Image, maxSide uint) ([]byte, error) {
	thumb := resize.Thumbnail(maxSide, maxSide, img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("encode preview: %w", err)
	}
	return buf.Bytes(), nil
}

// PreviewDataURL is Preview wrapped in a data URL for inline display.
func PreviewDataURL(img image.Image, maxSide uint) (string, error) {
	data, err := Preview(img, maxSide)
	if err != nil {
		return "", err
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data), nil
}
