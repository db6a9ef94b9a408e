package uploadrelay

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrFileNotFound indicates neither key nor custom ID resolved a record
	ErrFileNotFound = errors.New("file not found")

	// ErrObjectNotFound indicates the backing bytes are absent from storage
	ErrObjectNotFound = errors.New("object not found")

	// ErrInvalidFileStatus indicates an unknown file status value
	ErrInvalidFileStatus = errors.New("invalid file status")

	// ErrInvalidExpiry indicates an upload session TTL outside the allowed range
	ErrInvalidExpiry = errors.New("invalid expiry")

	// ErrInvalidMetadata indicates malformed declared metadata
	ErrInvalidMetadata = errors.New("invalid file metadata")

	// ErrFileNotReady indicates the file is not in a state that permits download
	ErrFileNotReady = errors.New("file not ready for download")

	// ErrUploadFailed indicates an upload operation failed
	ErrUploadFailed = errors.New("upload failed")
)

// FileError represents an error related to a file lifecycle operation
type FileError struct {
	Key string
	Op  string
	Err error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("file operation %s failed for key %s: %v", e.Op, e.Key, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to storage backend operations
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
