package uploadrelay

// Request/Response DTOs

// FileSeed carries the client-declared metadata for a file about to be
// uploaded. None of it is verified against the actual bytes.
type FileSeed struct {
	Name               string             `json:"name"`
	Size               int64              `json:"size"`
	Type               string             `json:"type,omitempty"`
	CustomID           string             `json:"customId,omitempty"`
	ACL                ACL                `json:"acl,omitempty"`
	ContentDisposition ContentDisposition `json:"contentDisposition,omitempty"`
}

// IssueUploadSessionRequest contains parameters for minting a signed upload
// target. TTLSeconds must be positive and at most seven days.
type IssueUploadSessionRequest struct {
	File       FileSeed
	TTLSeconds int64
}

// RegisterPendingRequest contains parameters for registering a pending
// record under a known key
type RegisterPendingRequest struct {
	Key  string
	File FileSeed
}

// ListFilesRequest contains pagination parameters for listing files
type ListFilesRequest struct {
	Limit        int
	Offset       int
	UploadedOnly bool
}

// RenameUpdate renames a single file, addressed by key or custom ID
type RenameUpdate struct {
	Identifier string `json:"fileKey"`
	NewName    string `json:"newName"`
}

// ACLUpdate changes the ACL of a single file, addressed by key or custom ID
type ACLUpdate struct {
	Identifier string `json:"fileKey"`
	ACL        ACL    `json:"acl"`
}

// ReadURLRequest contains parameters for requesting a read URL. TTLSeconds
// only applies to private files; public files get a plain URL.
type ReadURLRequest struct {
	Identifier string
	TTLSeconds int64
}
