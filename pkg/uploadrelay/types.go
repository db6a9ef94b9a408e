package uploadrelay

import "time"

// FileStatus is the domain type for file lifecycle states.
type FileStatus string

// File status constants (typed).
const (
	FileStatusUploading       FileStatus = "uploading"
	FileStatusUploaded        FileStatus = "uploaded"
	FileStatusFailed          FileStatus = "failed"
	FileStatusDeletionPending FileStatus = "deletion_pending"
)

// ACL is the domain type for file access control.
type ACL string

// ACL constants (typed).
const (
	ACLPrivate    ACL = "private"
	ACLPublicRead ACL = "public-read"
)

// ContentDisposition governs the Content-Disposition header on download.
type ContentDisposition string

// Content disposition constants (typed).
const (
	DispositionInline     ContentDisposition = "inline"
	DispositionAttachment ContentDisposition = "attachment"
)

// FileRecord is the unit the relay protects and tracks. Key is the storage
// object name, assigned before any bytes are received and immutable after.
// Name, Size and Type are client-declared and not verified against the
// actual bytes.
type FileRecord struct {
	Key                string             `json:"key"`
	CustomID           string             `json:"customId,omitempty"`
	Name               string             `json:"name"`
	Size               int64              `json:"size"`
	Type               string             `json:"type,omitempty"`
	Status             FileStatus         `json:"status"`
	ACL                ACL                `json:"acl"`
	ContentDisposition ContentDisposition `json:"contentDisposition"`
	FileHash           string             `json:"fileHash,omitempty"`
	UploadedAt         *time.Time         `json:"uploadedAt,omitempty"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
}

// UploadSession is a one-time signed upload target plus its companion
// polling handle. The upload URL carries the declared metadata and an
// expires timestamp, signed with the service secret. The poll URL is plain:
// polling only reveals status of a file the caller already knows the key for.
type UploadSession struct {
	Key       string `json:"key"`
	UploadURL string `json:"uploadUrl"`
	PollURL   string `json:"pollUrl"`
	Name      string `json:"name,omitempty"`
	CustomID  string `json:"customId,omitempty"`
}

// FileList is a page of records ordered by creation time, newest first.
// HasMore reports whether results exist past Offset+len(Files).
type FileList struct {
	Files   []*FileRecord `json:"files"`
	HasMore bool          `json:"hasMore"`
	Total   int64         `json:"total"`
}

// UsageReport aggregates storage usage. The relay reports usage but never
// gates on it.
type UsageReport struct {
	TotalBytes    int64 `json:"totalBytes"`
	FilesUploaded int64 `json:"filesUploaded"`
	FilesPending  int64 `json:"filesPending"`
}
