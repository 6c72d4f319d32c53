// Package storage stores uploaded images in object storage and issues their
// public URLs. Buckets are logical prefixes inside a single S3 bucket or a
// single local directory.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/anidigital/harvest-hub/internal/config"
)

// Logical buckets.
const (
	BucketProductImages   = "product-images"
	BucketShopBanners     = "shop-banners"
	BucketChatAttachments = "chat-attachments"
	BucketPaymentProofs   = "payment-proofs"
)

// Backends.
const (
	BackendLocal = "local"
	BackendS3    = "s3"
)

// ErrDisabled is returned by a backend that was started without the settings
// it needs.
var ErrDisabled = errors.New("object storage is not configured")

// Store is the minimal object store the services depend on. Keys are
// slash-separated and start with the bucket name.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (url string, err error)
	Delete(ctx context.Context, key string) error
}

// Object is a stored upload.
type Object struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
}

// New builds the backend selected by cfg.Backend.
func New(ctx context.Context, cfg config.StorageConfig, log zerolog.Logger) (Store, error) {
	switch cfg.Backend {
	case BackendS3:
		return NewS3Storage(ctx, cfg, log)
	case BackendLocal, "":
		return NewLocalStorage(cfg, log)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// NewKey returns a fresh object key "<bucket>/<ulid><ext>".
func NewKey(bucket, ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return path.Join(bucket, strings.ToLower(ulid.Make().String())+ext)
}

// UploadImage validates data as an image and stores it under bucket. Nothing
// reaches the store when validation fails.
func UploadImage(ctx context.Context, s Store, bucket string, data []byte) (*Object, error) {
	img, err := ValidateImage(data)
	if err != nil {
		return nil, err
	}
	key := NewKey(bucket, img.Extension)
	url, err := s.Put(ctx, key, data, img.ContentType)
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", bucket, err)
	}
	return &Object{Key: key, URL: url, ContentType: img.ContentType, Size: len(data)}, nil
}

// joinURL appends key to base, escaping nothing: keys are generated.
func joinURL(base, key string) string {
	if base == "" {
		return "/" + key
	}
	return strings.TrimRight(base, "/") + "/" + key
}
