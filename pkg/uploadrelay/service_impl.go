package uploadrelay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tendant/upload-relay/pkg/uploadrelay/signature"
)

const (
	// MaxUploadTTLSeconds caps upload session expiry at seven days
	MaxUploadTTLSeconds = 7 * 24 * 60 * 60

	// DefaultReadTTLSeconds is the default lifetime of signed read URLs
	DefaultReadTTLSeconds = 900

	defaultListLimit = 500
)

// Option configures the service
type Option func(*service)

// WithRepository sets the record store
func WithRepository(repo Repository) Option {
	return func(s *service) { s.repo = repo }
}

// WithBlobStore sets the byte-storage backend. A single process-wide
// binding, constructed once, never swapped at runtime.
func WithBlobStore(blob BlobStore) Option {
	return func(s *service) { s.blob = blob }
}

// WithSigner sets the signature engine used for upload and read URLs
func WithSigner(signer *signature.Signer) Option {
	return func(s *service) { s.signer = signer }
}

// WithBaseURL sets the externally visible base URL signed into every
// upload target and private read URL
func WithBaseURL(baseURL string) Option {
	return func(s *service) { s.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithIngestPath overrides the byte-ingest route prefix (default "/ingest")
func WithIngestPath(path string) Option {
	return func(s *service) { s.ingestPath = path }
}

// WithCDNPath overrides the read route prefix (default "/f")
func WithCDNPath(path string) Option {
	return func(s *service) { s.cdnPath = path }
}

type service struct {
	repo       Repository
	blob       BlobStore
	signer     *signature.Signer
	baseURL    string
	ingestPath string
	cdnPath    string
}

// New creates the upload-relay service
func New(opts ...Option) (Service, error) {
	svc := &service{
		baseURL:    "http://localhost:8080",
		ingestPath: "/ingest",
		cdnPath:    "/f",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(svc)
	}

	if svc.repo == nil {
		return nil, errors.New("repository is required")
	}
	if svc.blob == nil {
		return nil, errors.New("blob store is required")
	}
	if svc.signer == nil {
		return nil, errors.New("signer is required")
	}

	return svc, nil
}

func (s *service) IssueUploadSession(ctx context.Context, req IssueUploadSessionRequest) (*UploadSession, error) {
	if req.TTLSeconds <= 0 || req.TTLSeconds > MaxUploadTTLSeconds {
		return nil, fmt.Errorf("%w: ttl must be between 1 second and 7 days, got %d", ErrInvalidExpiry, req.TTLSeconds)
	}

	seed, err := normalizeSeed(req.File)
	if err != nil {
		return nil, err
	}

	key := newFileKey()
	if _, err := s.RegisterPending(ctx, RegisterPendingRequest{Key: key, File: seed}); err != nil {
		return nil, err
	}

	expiresAt := time.Now().Add(time.Duration(req.TTLSeconds) * time.Second).UnixMilli()
	uploadURL, err := s.signer.SignURL(s.ingestURL(key, seed, expiresAt))
	if err != nil {
		return nil, fmt.Errorf("failed to sign upload url: %w", err)
	}

	return &UploadSession{
		Key:       key,
		UploadURL: uploadURL,
		PollURL:   s.baseURL + s.ingestPath + "/" + key + "/status",
		Name:      seed.Name,
		CustomID:  seed.CustomID,
	}, nil
}

func (s *service) RegisterPending(ctx context.Context, req RegisterPendingRequest) (*FileRecord, error) {
	if req.Key == "" {
		return nil, fmt.Errorf("%w: file key is required", ErrInvalidMetadata)
	}
	seed, err := normalizeSeed(req.File)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	record := &FileRecord{
		Key:                req.Key,
		CustomID:           seed.CustomID,
		Name:               seed.Name,
		Size:               seed.Size,
		Type:               seed.Type,
		Status:             FileStatusUploading,
		ACL:                seed.ACL,
		ContentDisposition: seed.ContentDisposition,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	stored, _, err := s.repo.CreateIfAbsent(ctx, record)
	if err != nil {
		return nil, &FileError{Key: req.Key, Op: "register_pending", Err: err}
	}
	return stored, nil
}

func (s *service) ReceiveUpload(ctx context.Context, key string, reader io.Reader) (*FileRecord, error) {
	if _, err := s.repo.FindByIdentifier(ctx, key); err != nil {
		return nil, err
	}

	// The byte write is awaited fully before the status transition, so a
	// record is never Uploaded without its bytes in place.
	hash, err := s.blob.Upload(ctx, key, reader)
	if err != nil {
		return nil, &FileError{Key: key, Op: "receive_upload", Err: err}
	}

	return s.MarkUploaded(ctx, key, hash)
}

func (s *service) MarkUploaded(ctx context.Context, key, fileHash string) (*FileRecord, error) {
	record, err := s.repo.FindByIdentifier(ctx, key)
	if err != nil {
		return nil, err
	}

	apply, err := canMarkUploaded(record.Status)
	if err != nil {
		return nil, &FileError{Key: key, Op: "mark_uploaded", Err: err}
	}
	if !apply {
		return record, nil
	}

	now := time.Now().UTC()
	record.Status = FileStatusUploaded
	record.FileHash = fileHash
	record.UploadedAt = &now
	record.UpdatedAt = now

	updated, err := s.repo.Update(ctx, record)
	if err != nil {
		return nil, &FileError{Key: key, Op: "mark_uploaded", Err: err}
	}
	return updated, nil
}

func (s *service) MarkFailed(ctx context.Context, key string) (*FileRecord, error) {
	record, err := s.repo.FindByIdentifier(ctx, key)
	if err != nil {
		return nil, err
	}

	apply, err := canMarkFailed(record.Status)
	if err != nil {
		return nil, &FileError{Key: key, Op: "mark_failed", Err: err}
	}
	if !apply {
		return record, nil
	}

	// Partially written bytes are left in place for an external
	// reconciliation job.
	record.Status = FileStatusFailed
	record.UpdatedAt = time.Now().UTC()

	updated, err := s.repo.Update(ctx, record)
	if err != nil {
		return nil, &FileError{Key: key, Op: "mark_failed", Err: err}
	}
	return updated, nil
}

func (s *service) Resolve(ctx context.Context, identifier string) (*FileRecord, error) {
	return s.repo.FindByIdentifier(ctx, identifier)
}

func (s *service) OpenFile(ctx context.Context, identifier string) (*FileRecord, io.ReadCloser, error) {
	record, err := s.repo.FindByIdentifier(ctx, identifier)
	if err != nil {
		return nil, nil, err
	}

	if _, err := canServeFile(record.Status); err != nil {
		return record, nil, err
	}

	rc, err := s.blob.Download(ctx, record.Key)
	if err != nil {
		return record, nil, err
	}
	return record, rc, nil
}

func (s *service) ListFiles(ctx context.Context, req ListFilesRequest) (*FileList, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	offset := req.Offset
	if offset < 0 {
		offset = 0
	}

	// Records pending deletion exist only inside a Delete call and are
	// never surfaced to listings.
	filter := ListFilter{
		Statuses: []FileStatus{FileStatusUploading, FileStatusUploaded, FileStatusFailed},
		Limit:    limit,
		Offset:   offset,
	}
	if req.UploadedOnly {
		filter.Statuses = []FileStatus{FileStatusUploaded}
	}

	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &FileList{
		Files:   records,
		HasMore: total > int64(offset+len(records)),
		Total:   total,
	}, nil
}

func (s *service) RenameFiles(ctx context.Context, updates []RenameUpdate) (int64, error) {
	var renamed int64
	for _, update := range updates {
		if update.NewName == "" {
			return renamed, fmt.Errorf("%w: new name is required", ErrInvalidMetadata)
		}
		record, err := s.repo.FindByIdentifier(ctx, update.Identifier)
		if errors.Is(err, ErrFileNotFound) {
			continue
		}
		if err != nil {
			return renamed, err
		}

		record.Name = update.NewName
		record.UpdatedAt = time.Now().UTC()
		if _, err := s.repo.Update(ctx, record); err != nil {
			return renamed, &FileError{Key: record.Key, Op: "rename", Err: err}
		}
		renamed++
	}
	return renamed, nil
}

func (s *service) UpdateACL(ctx context.Context, updates []ACLUpdate) (int64, error) {
	var updated int64
	for _, update := range updates {
		if update.ACL != ACLPrivate && update.ACL != ACLPublicRead {
			return updated, fmt.Errorf("%w: unknown acl %q", ErrInvalidMetadata, update.ACL)
		}
		record, err := s.repo.FindByIdentifier(ctx, update.Identifier)
		if errors.Is(err, ErrFileNotFound) {
			continue
		}
		if err != nil {
			return updated, err
		}

		record.ACL = update.ACL
		record.UpdatedAt = time.Now().UTC()
		if _, err := s.repo.Update(ctx, record); err != nil {
			return updated, &FileError{Key: record.Key, Op: "update_acl", Err: err}
		}
		updated++
	}
	return updated, nil
}

func (s *service) DeleteFiles(ctx context.Context, identifiers []string) (int64, error) {
	var deleted int64
	for _, identifier := range identifiers {
		record, err := s.repo.FindByIdentifier(ctx, identifier)
		if errors.Is(err, ErrFileNotFound) {
			continue
		}
		if err != nil {
			return deleted, err
		}

		record.Status = FileStatusDeletionPending
		record.UpdatedAt = time.Now().UTC()
		if _, err := s.repo.Update(ctx, record); err != nil {
			return deleted, &FileError{Key: record.Key, Op: "delete", Err: err}
		}

		// Byte deletion is best effort: a missing object is swallowed and
		// any other storage error is logged without blocking record removal.
		if err := s.blob.Delete(ctx, record.Key); err != nil && !errors.Is(err, ErrObjectNotFound) {
			slog.Warn("failed to delete backing bytes", "key", record.Key, "error", err)
		}

		n, err := s.repo.DeleteByKeys(ctx, record.Key)
		if err != nil {
			return deleted, &FileError{Key: record.Key, Op: "delete", Err: err}
		}
		deleted += n
	}
	return deleted, nil
}

func (s *service) GetFileURL(ctx context.Context, req ReadURLRequest) (string, error) {
	record, err := s.repo.FindByIdentifier(ctx, req.Identifier)
	if err != nil {
		return "", err
	}

	if record.ACL == ACLPublicRead {
		return s.blob.PublicURL(record.Key), nil
	}

	ttl := req.TTLSeconds
	if ttl == 0 {
		ttl = DefaultReadTTLSeconds
	}
	if ttl < 0 || ttl > MaxUploadTTLSeconds {
		return "", fmt.Errorf("%w: ttl must be between 1 second and 7 days, got %d", ErrInvalidExpiry, ttl)
	}

	expiresAt := time.Now().Add(time.Duration(ttl) * time.Second).UnixMilli()
	rawURL := s.baseURL + s.cdnPath + "/" + url.PathEscape(record.Key) +
		"?" + signature.ExpiresParam + "=" + strconv.FormatInt(expiresAt, 10)
	return s.signer.SignURL(rawURL)
}

func (s *service) Usage(ctx context.Context) (*UsageReport, error) {
	totalBytes, err := s.repo.SumSize(ctx, FileStatusUploaded)
	if err != nil {
		return nil, err
	}

	_, uploaded, err := s.repo.List(ctx, ListFilter{Statuses: []FileStatus{FileStatusUploaded}, Limit: 1})
	if err != nil {
		return nil, err
	}
	_, pending, err := s.repo.List(ctx, ListFilter{Statuses: []FileStatus{FileStatusUploading}, Limit: 1})
	if err != nil {
		return nil, err
	}

	return &UsageReport{
		TotalBytes:    totalBytes,
		FilesUploaded: uploaded,
		FilesPending:  pending,
	}, nil
}

// ingestURL assembles the unsigned upload target. Parameter order matters:
// the signature is computed over the URL exactly as built here, and the
// verifier reconstructs it by stripping the signature parameter alone.
func (s *service) ingestURL(key string, seed FileSeed, expiresAt int64) string {
	var b strings.Builder
	b.WriteString(s.baseURL)
	b.WriteString(s.ingestPath)
	b.WriteString("/")
	b.WriteString(url.PathEscape(key))
	b.WriteString("?name=")
	b.WriteString(url.QueryEscape(seed.Name))
	b.WriteString("&size=")
	b.WriteString(strconv.FormatInt(seed.Size, 10))
	if seed.Type != "" {
		b.WriteString("&type=")
		b.WriteString(url.QueryEscape(seed.Type))
	}
	b.WriteString("&acl=")
	b.WriteString(url.QueryEscape(string(seed.ACL)))
	b.WriteString("&contentDisposition=")
	b.WriteString(url.QueryEscape(string(seed.ContentDisposition)))
	if seed.CustomID != "" {
		b.WriteString("&customId=")
		b.WriteString(url.QueryEscape(seed.CustomID))
	}
	b.WriteString("&")
	b.WriteString(signature.ExpiresParam)
	b.WriteString("=")
	b.WriteString(strconv.FormatInt(expiresAt, 10))
	return b.String()
}

// newFileKey mints a fresh opaque storage key. Collision is treated as a
// configuration-level assumption, not handled defensively.
func newFileKey() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func normalizeSeed(seed FileSeed) (FileSeed, error) {
	if seed.Name == "" {
		return seed, fmt.Errorf("%w: file name is required", ErrInvalidMetadata)
	}
	if seed.Size < 0 {
		return seed, fmt.Errorf("%w: file size cannot be negative", ErrInvalidMetadata)
	}

	switch seed.ACL {
	case "":
		seed.ACL = ACLPrivate
	case ACLPrivate, ACLPublicRead:
	default:
		return seed, fmt.Errorf("%w: unknown acl %q", ErrInvalidMetadata, seed.ACL)
	}

	switch seed.ContentDisposition {
	case "":
		seed.ContentDisposition = DispositionInline
	case DispositionInline, DispositionAttachment:
	default:
		return seed, fmt.Errorf("%w: unknown content disposition %q", ErrInvalidMetadata, seed.ContentDisposition)
	}

	return seed, nil
}
