package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/tendant/upload-relay/pkg/uploadrelay"
)

// ErrorResponse is the stable JSON shape for every error crossing the
// service boundary. Internal errors never leak detail.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: message})
}

// writeServiceError maps domain errors onto the error taxonomy: not-found
// and validation failures carry their reason, everything else is a 500
// with a generic message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, uploadrelay.ErrFileNotFound),
		errors.Is(err, uploadrelay.ErrObjectNotFound),
		errors.Is(err, uploadrelay.ErrFileNotReady):
		writeError(w, r, http.StatusNotFound, "file not found")
	case errors.Is(err, uploadrelay.ErrInvalidExpiry),
		errors.Is(err, uploadrelay.ErrInvalidMetadata):
		writeError(w, r, http.StatusBadRequest, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
