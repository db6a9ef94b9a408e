package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/upload-relay/pkg/uploadrelay"
	"github.com/tendant/upload-relay/pkg/uploadrelay/guard"
)

// FilesHandler serves the management API. Every route is gated by the
// API-key guard.
type FilesHandler struct {
	service uploadrelay.Service
	secret  string
}

// NewFilesHandler creates the management API handler
func NewFilesHandler(service uploadrelay.Service, secret string) *FilesHandler {
	return &FilesHandler{service: service, secret: secret}
}

// Routes returns the router for management endpoints
func (h *FilesHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(guard.RequireAPIKey(h.secret))
	r.Post("/uploadFiles", h.UploadFiles)
	r.Post("/listFiles", h.ListFiles)
	r.Post("/deleteFiles", h.DeleteFiles)
	r.Post("/renameFiles", h.RenameFiles)
	r.Post("/updateACL", h.UpdateACL)
	r.Post("/requestFileAccess", h.RequestFileAccess)
	r.Post("/completeMultipart", h.CompleteMultipart)
	r.Post("/failureCallback", h.FailureCallback)
	r.Post("/usage", h.Usage)
	return r
}

// UploadFilesRequest asks for direct-upload sessions for a batch of files
type UploadFilesRequest struct {
	Files      []uploadrelay.FileSeed `json:"files"`
	TTLSeconds int64                  `json:"ttlSeconds,omitempty"`
}

// UploadFilesResponse carries one upload session per requested file
type UploadFilesResponse struct {
	Data []*uploadrelay.UploadSession `json:"data"`
}

// UploadFiles issues direct-upload sessions
func (h *FilesHandler) UploadFiles(w http.ResponseWriter, r *http.Request) {
	var req UploadFilesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}
	if len(req.Files) == 0 {
		writeError(w, r, http.StatusBadRequest, "at least one file is required")
		return
	}

	ttl := req.TTLSeconds
	if ttl == 0 {
		ttl = 3600
	}

	sessions := make([]*uploadrelay.UploadSession, 0, len(req.Files))
	for _, seed := range req.Files {
		session, err := h.service.IssueUploadSession(r.Context(), uploadrelay.IssueUploadSessionRequest{
			File:       seed,
			TTLSeconds: ttl,
		})
		if err != nil {
			slog.Error("failed to issue upload session", "name", seed.Name, "error", err)
			writeServiceError(w, r, err)
			return
		}
		sessions = append(sessions, session)
	}

	render.JSON(w, r, UploadFilesResponse{Data: sessions})
}

// ListFilesRequest pages through files
type ListFilesRequest struct {
	Limit        int  `json:"limit,omitempty"`
	Offset       int  `json:"offset,omitempty"`
	UploadedOnly bool `json:"uploadedOnly,omitempty"`
}

// ListFiles returns a page of files, newest first
func (h *FilesHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	var req ListFilesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}

	list, err := h.service.ListFiles(r.Context(), uploadrelay.ListFilesRequest{
		Limit:        req.Limit,
		Offset:       req.Offset,
		UploadedOnly: req.UploadedOnly,
	})
	if err != nil {
		slog.Error("failed to list files", "error", err)
		writeServiceError(w, r, err)
		return
	}

	render.JSON(w, r, list)
}

// DeleteFilesRequest addresses files by key or custom ID
type DeleteFilesRequest struct {
	FileKeys  []string `json:"fileKeys,omitempty"`
	CustomIDs []string `json:"customIds,omitempty"`
}

// DeleteFilesResponse reports the count of records removed, independent of
// whether byte deletion succeeded
type DeleteFilesResponse struct {
	Success      bool  `json:"success"`
	DeletedCount int64 `json:"deletedCount"`
}

// DeleteFiles removes backing bytes (best effort) then the records
func (h *FilesHandler) DeleteFiles(w http.ResponseWriter, r *http.Request) {
	var req DeleteFilesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}

	identifiers := append(append([]string{}, req.FileKeys...), req.CustomIDs...)
	deleted, err := h.service.DeleteFiles(r.Context(), identifiers)
	if err != nil {
		slog.Error("failed to delete files", "error", err)
		writeServiceError(w, r, err)
		return
	}

	render.JSON(w, r, DeleteFilesResponse{Success: true, DeletedCount: deleted})
}

// RenameFilesRequest renames a batch of files
type RenameFilesRequest struct {
	Updates []uploadrelay.RenameUpdate `json:"updates"`
}

// RenameFilesResponse reports the count renamed
type RenameFilesResponse struct {
	RenamedCount int64 `json:"renamedCount"`
}

// RenameFiles renames files one by one
func (h *FilesHandler) RenameFiles(w http.ResponseWriter, r *http.Request) {
	var req RenameFilesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}

	renamed, err := h.service.RenameFiles(r.Context(), req.Updates)
	if err != nil {
		slog.Error("failed to rename files", "error", err)
		writeServiceError(w, r, err)
		return
	}

	render.JSON(w, r, RenameFilesResponse{RenamedCount: renamed})
}

// UpdateACLRequest changes the ACL of a batch of files
type UpdateACLRequest struct {
	Updates []uploadrelay.ACLUpdate `json:"updates"`
}

// UpdateACLResponse reports the count updated
type UpdateACLResponse struct {
	UpdatedCount int64 `json:"updatedCount"`
}

// UpdateACL changes file ACLs one by one
func (h *FilesHandler) UpdateACL(w http.ResponseWriter, r *http.Request) {
	var req UpdateACLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}

	updated, err := h.service.UpdateACL(r.Context(), req.Updates)
	if err != nil {
		slog.Error("failed to update acls", "error", err)
		writeServiceError(w, r, err)
		return
	}

	render.JSON(w, r, UpdateACLResponse{UpdatedCount: updated})
}

// RequestFileAccessRequest asks for a read URL for a single file
type RequestFileAccessRequest struct {
	FileKey    string `json:"fileKey"`
	TTLSeconds int64  `json:"ttlSeconds,omitempty"`
}

// RequestFileAccessResponse carries the read URL: signed and time-limited
// for private files, plain for public ones
type RequestFileAccessResponse struct {
	URL string `json:"url"`
}

// RequestFileAccess returns a read URL for a file
func (h *FilesHandler) RequestFileAccess(w http.ResponseWriter, r *http.Request) {
	var req RequestFileAccessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}

	url, err := h.service.GetFileURL(r.Context(), uploadrelay.ReadURLRequest{
		Identifier: req.FileKey,
		TTLSeconds: req.TTLSeconds,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	render.JSON(w, r, RequestFileAccessResponse{URL: url})
}

// CompleteMultipartRequest marks a multipart session complete
type CompleteMultipartRequest struct {
	FileKey  string `json:"fileKey"`
	FileHash string `json:"fileHash,omitempty"`
}

// CompleteMultipart transitions a file to Uploaded on behalf of a client
// that finished a multipart upload out of band
func (h *FilesHandler) CompleteMultipart(w http.ResponseWriter, r *http.Request) {
	var req CompleteMultipartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}

	record, err := h.service.MarkUploaded(r.Context(), req.FileKey, req.FileHash)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	render.JSON(w, r, record)
}

// FailureCallbackRequest reports a failed upload
type FailureCallbackRequest struct {
	FileKey string `json:"fileKey"`
}

// FailureCallback transitions a file to Failed. Partially written bytes are
// left for an external cleanup job.
func (h *FilesHandler) FailureCallback(w http.ResponseWriter, r *http.Request) {
	var req FailureCallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}

	record, err := h.service.MarkFailed(r.Context(), req.FileKey)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	render.JSON(w, r, record)
}

// Usage reports aggregate storage usage
func (h *FilesHandler) Usage(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Usage(r.Context())
	if err != nil {
		slog.Error("failed to compute usage", "error", err)
		writeServiceError(w, r, err)
		return
	}

	render.JSON(w, r, report)
}
