package memory

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/tendant/upload-relay/pkg/uploadrelay"
)

// Backend is an in-memory implementation of the uploadrelay.BlobStore
// interface, intended for tests and development
type Backend struct {
	mu        sync.RWMutex
	objects   map[string][]byte
	urlPrefix string
}

// New creates a new in-memory storage backend. The URL prefix is used for
// public read URLs, typically the relay's own CDN route.
func New(urlPrefix string) uploadrelay.BlobStore {
	return &Backend{
		objects:   make(map[string][]byte),
		urlPrefix: strings.TrimRight(urlPrefix, "/"),
	}
}

// Upload stores the bytes and returns their SHA-256 digest
func (b *Backend) Upload(ctx context.Context, objectKey string, reader io.Reader) (string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", &uploadrelay.StorageError{Backend: "memory", Key: objectKey, Op: "upload", Err: err}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[objectKey] = data

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Download returns a stream over the stored bytes
func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[objectKey]
	if !exists {
		return nil, uploadrelay.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Exists reports whether the object is present
func (b *Backend) Exists(ctx context.Context, objectKey string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	_, exists := b.objects[objectKey]
	return exists, nil
}

// Delete removes the object. A missing object is not an error.
func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.objects, objectKey)
	return nil
}

// PublicURL returns the unauthenticated read URL for the object
func (b *Backend) PublicURL(objectKey string) string {
	return b.urlPrefix + "/" + objectKey
}

// SignedURL is not supported by the in-memory backend; the relay signs its
// own CDN URLs instead
func (b *Backend) SignedURL(ctx context.Context, objectKey string, ttl time.Duration) (string, error) {
	return "", errors.New("signed URLs are not supported by the memory backend")
}
