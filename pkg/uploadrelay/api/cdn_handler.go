package api

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tendant/upload-relay/pkg/uploadrelay"
	"github.com/tendant/upload-relay/pkg/uploadrelay/guard"
	"github.com/tendant/upload-relay/pkg/uploadrelay/signature"
)

// CDNHandler serves file bytes. Public files are open; private files are
// re-gated by the signed-URL guard at read time.
type CDNHandler struct {
	service uploadrelay.Service
	signer  *signature.Signer
}

// NewCDNHandler creates the read-path handler
func NewCDNHandler(service uploadrelay.Service, signer *signature.Signer) *CDNHandler {
	return &CDNHandler{service: service, signer: signer}
}

// Routes returns the router for read endpoints
func (h *CDNHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{key}", h.Serve)
	return r
}

// Serve resolves a file by key or custom ID and streams its bytes. 404 if
// the record or the backing bytes are absent; 403 on a private file without
// a valid, unexpired signature.
func (h *CDNHandler) Serve(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	record, err := h.service.Resolve(r.Context(), key)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	// The guard runs after resolution because only private records need it
	if record.ACL != uploadrelay.ACLPublicRead {
		if err := guard.VerifyRequest(h.signer, r); err != nil {
			guard.Forbidden(w, r)
			return
		}
	}

	record, rc, err := h.service.OpenFile(r.Context(), key)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	defer rc.Close()

	contentType := record.Type
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", contentDisposition(record))
	w.Header().Set("Cache-Control", cacheControl(record.ACL))

	if _, err := io.Copy(w, rc); err != nil {
		slog.Error("failed to stream file", "key", record.Key, "error", err)
	}
}

func contentDisposition(record *uploadrelay.FileRecord) string {
	if record.ContentDisposition == uploadrelay.DispositionAttachment {
		return fmt.Sprintf("attachment; filename=%q", record.Name)
	}
	return fmt.Sprintf("inline; filename=%q", record.Name)
}

// cacheControl keeps private bytes out of shared caches while letting
// immutable public objects be cached aggressively
func cacheControl(acl uploadrelay.ACL) string {
	if acl == uploadrelay.ACLPublicRead {
		return "public, max-age=31536000, immutable"
	}
	return "private, no-store"
}
