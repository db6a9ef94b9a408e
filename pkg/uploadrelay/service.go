package uploadrelay

import (
	"context"
	"io"
)

// Service defines the main interface for the upload-relay core: the file
// lifecycle state machine plus upload session issuance. HTTP routing,
// request validation and byte I/O sit around it as collaborators.
type Service interface {
	// IssueUploadSession mints a fresh file key, registers the pending
	// record and returns a one-time signed upload target plus its
	// companion polling handle
	IssueUploadSession(ctx context.Context, req IssueUploadSessionRequest) (*UploadSession, error)

	// RegisterPending upserts a record in status Uploading under the given
	// key. Idempotent: the first registration fixes the declared metadata
	// and repeats never overwrite it.
	RegisterPending(ctx context.Context, req RegisterPendingRequest) (*FileRecord, error)

	// ReceiveUpload streams the body into storage and, once the write is
	// fully awaited, transitions the record to Uploaded
	ReceiveUpload(ctx context.Context, key string, reader io.Reader) (*FileRecord, error)

	// MarkUploaded transitions an existing record to Uploaded, recording
	// the content hash and upload time. Calling it again refreshes the
	// hash and timestamp but never reverts the status. On a Failed record
	// it is a no-op success.
	MarkUploaded(ctx context.Context, key, fileHash string) (*FileRecord, error)

	// MarkFailed transitions an existing record to Failed. Partially
	// written bytes are left for an external cleanup job.
	MarkFailed(ctx context.Context, key string) (*FileRecord, error)

	// Resolve looks up a record by key or custom ID
	Resolve(ctx context.Context, identifier string) (*FileRecord, error)

	// OpenFile resolves a record and opens its backing bytes for reading.
	// Returns ErrFileNotFound when the record is absent and
	// ErrObjectNotFound when the bytes are.
	OpenFile(ctx context.Context, identifier string) (*FileRecord, io.ReadCloser, error)

	// ListFiles returns a page of records, newest first
	ListFiles(ctx context.Context, req ListFilesRequest) (*FileList, error)

	// RenameFiles renames files one by one and returns the count renamed
	RenameFiles(ctx context.Context, updates []RenameUpdate) (int64, error)

	// UpdateACL changes file ACLs one by one and returns the count updated
	UpdateACL(ctx context.Context, updates []ACLUpdate) (int64, error)

	// DeleteFiles removes backing bytes (best effort) then the records,
	// returning the count of records removed
	DeleteFiles(ctx context.Context, identifiers []string) (int64, error)

	// GetFileURL returns a read URL for the file: signed and time-limited
	// if the file is private, plain if it is public
	GetFileURL(ctx context.Context, req ReadURLRequest) (string, error)

	// Usage reports aggregate storage usage
	Usage(ctx context.Context) (*UsageReport, error)
}
