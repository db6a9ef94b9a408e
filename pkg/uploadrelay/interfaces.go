package uploadrelay

import (
	"context"
	"io"
	"time"
)

// BlobStore defines the capability interface for byte-storage backends.
// One concrete adapter per backend, selected by configuration at process
// start and never swapped at runtime.
type BlobStore interface {
	// Upload streams content into storage and returns the hex-encoded
	// SHA-256 digest of the written bytes
	Upload(ctx context.Context, objectKey string, reader io.Reader) (string, error)

	// Download returns a stream of the stored bytes. Returns
	// ErrObjectNotFound if the object is absent.
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Exists reports whether the object is present
	Exists(ctx context.Context, objectKey string) (bool, error)

	// Delete removes the object. A missing object is not an error.
	Delete(ctx context.Context, objectKey string) error

	// PublicURL returns the unauthenticated read URL for the object
	PublicURL(objectKey string) string

	// SignedURL returns a backend-issued time-limited read URL
	SignedURL(ctx context.Context, objectKey string, ttl time.Duration) (string, error)
}

// ListFilter narrows and pages List queries.
type ListFilter struct {
	Statuses []FileStatus
	Limit    int
	Offset   int
}

// Repository defines the interface for file record persistence. All
// mutations are keyed by a unique record identifier and are atomic
// single-record operations; there is no lock manager and none is needed.
type Repository interface {
	// CreateIfAbsent inserts the record unless one with the same key
	// already exists. It returns the stored record and whether this call
	// created it. First registration wins: an existing record is returned
	// untouched.
	CreateIfAbsent(ctx context.Context, record *FileRecord) (*FileRecord, bool, error)

	// Update replaces the record identified by record.Key and returns the
	// updated record. Returns ErrFileNotFound if absent.
	Update(ctx context.Context, record *FileRecord) (*FileRecord, error)

	// FindByIdentifier resolves a record by key or custom ID.
	// Returns ErrFileNotFound if neither matches.
	FindByIdentifier(ctx context.Context, identifier string) (*FileRecord, error)

	// List returns records ordered by creation time, newest first, plus
	// the total count matching the filter.
	List(ctx context.Context, filter ListFilter) ([]*FileRecord, int64, error)

	// DeleteByKeys removes records by key and returns the count removed
	DeleteByKeys(ctx context.Context, keys ...string) (int64, error)

	// SumSize returns the aggregate declared size of records in the given
	// statuses (all records when none are given)
	SumSize(ctx context.Context, statuses ...FileStatus) (int64, error)
}
