package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/upload-relay/pkg/uploadrelay"
	"github.com/tendant/upload-relay/pkg/uploadrelay/guard"
	"github.com/tendant/upload-relay/pkg/uploadrelay/signature"
)

// IngestHandler serves the byte-ingest endpoints consumed by the uploading
// client. The pre-flight and byte-bearing calls are gated by the signed-URL
// guard; the poll endpoint is plain because polling only reveals status of
// a file the caller already knows the key for.
type IngestHandler struct {
	service uploadrelay.Service
	signer  *signature.Signer
}

// NewIngestHandler creates the ingest endpoint handler
func NewIngestHandler(service uploadrelay.Service, signer *signature.Signer) *IngestHandler {
	return &IngestHandler{service: service, signer: signer}
}

// Routes returns the router for ingest endpoints
func (h *IngestHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{key}/status", h.Poll)
	r.Group(func(r chi.Router) {
		r.Use(guard.RequireSignedURL(h.signer))
		r.Get("/{key}", h.Preflight)
		r.Put("/{key}", h.Upload)
	})
	return r
}

// PreflightResponse reports the registered record
type PreflightResponse struct {
	Key    string                 `json:"key"`
	Status uploadrelay.FileStatus `json:"status"`
}

// Preflight registers a pending record from declared metadata carried in
// query parameters. Both the pre-flight probe and the byte-bearing request
// may race to register the same key; the first to arrive fixes the
// declared metadata.
func (h *IngestHandler) Preflight(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	record, err := h.service.RegisterPending(r.Context(), uploadrelay.RegisterPendingRequest{
		Key:  key,
		File: seedFromQuery(r),
	})
	if err != nil {
		slog.Error("preflight registration failed", "key", key, "error", err)
		writeServiceError(w, r, err)
		return
	}

	render.JSON(w, r, PreflightResponse{Key: record.Key, Status: record.Status})
}

// UploadResponse reports a completed byte write
type UploadResponse struct {
	Key      string `json:"key"`
	FileHash string `json:"fileHash"`
	URL      string `json:"url"`
}

// Upload streams the request body to the storage backend and transitions
// the record to Uploaded once the write has been fully awaited
func (h *IngestHandler) Upload(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	// The byte-bearing request registers too, in case it beat the
	// pre-flight. CreateIfAbsent makes this a no-op when it lost the race.
	if _, err := h.service.RegisterPending(r.Context(), uploadrelay.RegisterPendingRequest{
		Key:  key,
		File: seedFromQuery(r),
	}); err != nil {
		slog.Error("upload registration failed", "key", key, "error", err)
		writeServiceError(w, r, err)
		return
	}

	record, err := h.service.ReceiveUpload(r.Context(), key, r.Body)
	if err != nil {
		slog.Error("upload failed", "key", key, "error", err)
		writeServiceError(w, r, err)
		return
	}

	readURL, err := h.service.GetFileURL(r.Context(), uploadrelay.ReadURLRequest{Identifier: record.Key})
	if err != nil {
		slog.Error("failed to build read url", "key", key, "error", err)
		writeServiceError(w, r, err)
		return
	}

	render.JSON(w, r, UploadResponse{Key: record.Key, FileHash: record.FileHash, URL: readURL})
}

// PollResponse reports upload progress for a known key
type PollResponse struct {
	Status   string `json:"status"`
	FileHash string `json:"fileHash,omitempty"`
}

// Poll reports the upload status of a file
func (h *IngestHandler) Poll(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	record, err := h.service.Resolve(r.Context(), key)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	render.JSON(w, r, PollResponse{Status: pollStatus(record.Status), FileHash: record.FileHash})
}

func pollStatus(status uploadrelay.FileStatus) string {
	switch status {
	case uploadrelay.FileStatusUploaded:
		return "done"
	case uploadrelay.FileStatusFailed:
		return "failed"
	default:
		return "pending"
	}
}

// seedFromQuery extracts client-declared metadata from the signed query
// string. Nothing here is verified against the actual bytes.
func seedFromQuery(r *http.Request) uploadrelay.FileSeed {
	q := r.URL.Query()
	size, _ := strconv.ParseInt(q.Get("size"), 10, 64)
	return uploadrelay.FileSeed{
		Name:               q.Get("name"),
		Size:               size,
		Type:               q.Get("type"),
		CustomID:           q.Get("customId"),
		ACL:                uploadrelay.ACL(q.Get("acl")),
		ContentDisposition: uploadrelay.ContentDisposition(q.Get("contentDisposition")),
	}
}
