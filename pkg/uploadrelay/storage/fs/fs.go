package fs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tendant/upload-relay/pkg/uploadrelay"
)

// Backend is a filesystem implementation of the uploadrelay.BlobStore
// interface
type Backend struct {
	baseDir   string
	urlPrefix string
}

// Config options for the filesystem backend
type Config struct {
	BaseDir   string // Base directory for storing files
	URLPrefix string // URL prefix for public read URLs, typically the relay's CDN route
}

// New creates a new filesystem storage backend
func New(config Config) (uploadrelay.BlobStore, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}

	if err := os.MkdirAll(config.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &Backend{
		baseDir:   config.BaseDir,
		urlPrefix: strings.TrimRight(config.URLPrefix, "/"),
	}, nil
}

// Upload streams the bytes to disk, hashing them on the way through, and
// returns the SHA-256 digest
func (b *Backend) Upload(ctx context.Context, objectKey string, reader io.Reader) (string, error) {
	filePath := filepath.Join(b.baseDir, objectKey)

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return "", &uploadrelay.StorageError{Backend: "fs", Key: objectKey, Op: "upload", Err: err}
	}

	file, err := os.Create(filePath)
	if err != nil {
		return "", &uploadrelay.StorageError{Backend: "fs", Key: objectKey, Op: "upload", Err: err}
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(io.MultiWriter(file, hasher), reader); err != nil {
		return "", &uploadrelay.StorageError{Backend: "fs", Key: objectKey, Op: "upload", Err: err}
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Download opens the stored bytes for reading
func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	file, err := os.Open(filepath.Join(b.baseDir, objectKey))
	if os.IsNotExist(err) {
		return nil, uploadrelay.ErrObjectNotFound
	} else if err != nil {
		return nil, &uploadrelay.StorageError{Backend: "fs", Key: objectKey, Op: "download", Err: err}
	}
	return file, nil
}

// Exists reports whether the object is present
func (b *Backend) Exists(ctx context.Context, objectKey string) (bool, error) {
	_, err := os.Stat(filepath.Join(b.baseDir, objectKey))
	if os.IsNotExist(err) {
		return false, nil
	} else if err != nil {
		return false, &uploadrelay.StorageError{Backend: "fs", Key: objectKey, Op: "stat", Err: err}
	}
	return true, nil
}

// Delete removes the object. A missing object is not an error.
func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	filePath := filepath.Join(b.baseDir, objectKey)

	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &uploadrelay.StorageError{Backend: "fs", Key: objectKey, Op: "delete", Err: err}
	}

	b.cleanupEmptyDirectories(filepath.Dir(filePath))
	return nil
}

// PublicURL returns the unauthenticated read URL for the object
func (b *Backend) PublicURL(objectKey string) string {
	return b.urlPrefix + "/" + objectKey
}

// SignedURL is not supported by the filesystem backend; the relay signs its
// own CDN URLs instead
func (b *Backend) SignedURL(ctx context.Context, objectKey string, ttl time.Duration) (string, error) {
	return "", errors.New("signed URLs are not supported by the filesystem backend")
}

// cleanupEmptyDirectories recursively removes empty directories up to baseDir
func (b *Backend) cleanupEmptyDirectories(dir string) {
	if dir == b.baseDir {
		return
	}

	if entries, err := os.ReadDir(dir); err == nil && len(entries) == 0 {
		if os.Remove(dir) == nil {
			b.cleanupEmptyDirectories(filepath.Dir(dir))
		}
	}
}
