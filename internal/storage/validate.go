package storage

import (
	"errors"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MaxImageBytes is the largest accepted image upload.
const MaxImageBytes = 5 << 20

var (
	ErrEmptyFile        = errors.New("file is empty")
	ErrFileTooLarge     = errors.New("file exceeds 5 MiB")
	ErrUnsupportedMedia = errors.New("file is not a supported image")
)

var allowedMIMEs = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
	"image/heic": true,
	"image/heif": true,
}

// Image describes validated image bytes.
type Image struct {
	ContentType string
	Extension   string
}

// ValidateImage checks size and sniffs the content type. The declared
// client content type is never trusted.
func ValidateImage(data []byte) (Image, error) {
	if len(data) == 0 {
		return Image{}, ErrEmptyFile
	}
	if len(data) > MaxImageBytes {
		return Image{}, ErrFileTooLarge
	}
	m := mimetype.Detect(data)
	ct := strings.ToLower(m.String())
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if !allowedMIMEs[ct] {
		return Image{}, ErrUnsupportedMedia
	}
	return Image{ContentType: ct, Extension: m.Extension()}, nil
}
