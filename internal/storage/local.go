package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/anidigital/harvest-hub/internal/config"
)

// ErrInvalidKey is returned for keys that would escape the storage root.
var ErrInvalidKey = errors.New("invalid object key")

// LocalStorage stores objects on the local filesystem. The router serves
// the base directory under baseURL.
type LocalStorage struct {
	basePath string
	baseURL  string
	log      zerolog.Logger
	disabled bool
}

// NewLocalStorage creates the base directory if needed.
func NewLocalStorage(cfg config.StorageConfig, log zerolog.Logger) (*LocalStorage, error) {
	logger := log.With().Str("component", "local-storage").Logger()

	basePath := strings.TrimSpace(cfg.LocalPath)
	if basePath == "" {
		logger.Warn().Msg("STORAGE_LOCAL_PATH is not set; uploads are disabled")
		return &LocalStorage{log: logger, disabled: true}, nil
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create local storage directory: %w", err)
	}

	st := &LocalStorage{
		basePath: basePath,
		baseURL:  strings.TrimSpace(cfg.LocalBaseURL),
		log:      logger,
	}
	logger.Info().Str("path", basePath).Str("base_url", st.baseURL).Msg("local storage initialized")
	return st, nil
}

// Root is the directory objects are written under.
func (l *LocalStorage) Root() string { return l.basePath }

// BaseURL is the URL prefix objects are served from.
func (l *LocalStorage) BaseURL() string { return l.baseURL }

func (l *LocalStorage) ensureEnabled() error {
	if l.disabled {
		return ErrDisabled
	}
	return nil
}

func (l *LocalStorage) fullPath(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if key == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", ErrInvalidKey
	}
	return filepath.Join(l.basePath, clean), nil
}

// Put writes data under key and returns its URL.
func (l *LocalStorage) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := l.ensureEnabled(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	full, err := l.fullPath(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}

	file, err := os.Create(full)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer file.Close()

	written, err := io.Copy(file, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	l.log.Debug().Str("key", key).Str("content_type", contentType).Int64("bytes", written).Msg("object stored")
	return joinURL(l.baseURL, filepath.ToSlash(key)), nil
}

// Delete removes key. Missing files are ignored.
func (l *LocalStorage) Delete(ctx context.Context, key string) error {
	if err := l.ensureEnabled(); err != nil {
		return err
	}
	full, err := l.fullPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

// Health checks that the storage directory is writable.
func (l *LocalStorage) Health(ctx context.Context) error {
	if l.disabled {
		return nil
	}
	probe := filepath.Join(l.basePath, ".health_check")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return fmt.Errorf("storage directory not writable: %w", err)
	}
	_ = os.Remove(probe)
	return nil
}
