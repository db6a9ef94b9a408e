package uploadrelay

import "fmt"

// The file status machine is monotonic along Uploading -> {Uploaded, Failed}.
// Uploaded and Failed are terminal for status writes; DeletionPending is a
// precursor to record removal and is orthogonal to the upload outcome. No
// transition moves backward. Attempts to re-enter a terminal state are
// treated as no-op successes rather than conflicts, so retried callbacks
// never corrupt uploadedAt or fileHash.

// canMarkUploaded reports whether the Uploaded transition should be applied.
// apply=false with a nil error means a permitted no-op.
func canMarkUploaded(status FileStatus) (apply bool, err error) {
	switch status {
	case FileStatusUploading:
		return true, nil
	case FileStatusUploaded:
		// Idempotent retry: refreshing hash and timestamp is allowed
		return true, nil
	case FileStatusFailed, FileStatusDeletionPending:
		return false, nil
	default:
		return false, fmt.Errorf("%w: unknown status %s", ErrInvalidFileStatus, status)
	}
}

// canMarkFailed reports whether the Failed transition should be applied.
// apply=false with a nil error means a permitted no-op.
func canMarkFailed(status FileStatus) (apply bool, err error) {
	switch status {
	case FileStatusUploading:
		return true, nil
	case FileStatusUploaded, FileStatusFailed, FileStatusDeletionPending:
		return false, nil
	default:
		return false, fmt.Errorf("%w: unknown status %s", ErrInvalidFileStatus, status)
	}
}

// canServeFile checks whether a file's bytes may be served based on its
// status. Only fully uploaded files are visible on the read path.
func canServeFile(status FileStatus) (bool, error) {
	switch status {
	case FileStatusUploaded:
		return true, nil
	case FileStatusUploading:
		return false, fmt.Errorf("%w: upload is still in progress (status: %s)", ErrFileNotReady, status)
	case FileStatusFailed:
		return false, fmt.Errorf("%w: upload failed (status: %s)", ErrFileNotReady, status)
	case FileStatusDeletionPending:
		return false, fmt.Errorf("%w: file is pending deletion (status: %s)", ErrFileNotReady, status)
	default:
		return false, fmt.Errorf("%w: unknown status %s", ErrInvalidFileStatus, status)
	}
}
