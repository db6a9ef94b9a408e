// Package guard provides the two fail-closed HTTP gates of the relay: the
// API-key guard for privileged management operations and the signed-URL
// guard for time-limited, capability-scoped operations.
package guard

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"github.com/tendant/upload-relay/pkg/uploadrelay/signature"
	"github.com/tendant/upload-relay/pkg/uploadrelay/token"
)

// APIKeyHeader is the credential header checked by the API-key guard
const APIKeyHeader = "x-uploadthing-api-key"

// RequireAPIKey gates privileged management operations. The decoded API key
// is compared to the configured secret via plain equality: this is an
// internal trust boundary, not a public signature check.
func RequireAPIKey(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := credentialFromRequest(r)
			if raw == "" {
				unauthorized(w, r, "missing credential")
				return
			}

			cred, err := token.Parse(raw)
			if err != nil {
				unauthorized(w, r, "invalid token format")
				return
			}

			if cred.APIKey != secret {
				unauthorized(w, r, "invalid key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireSignedURL gates ingest callbacks and private reads. It reconstructs
// the exact request URL as observed by the server and verifies it with the
// service secret. Every failure mode yields the same outcome so callers
// cannot probe which check failed.
func RequireSignedURL(signer *signature.Signer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := signer.VerifyURL(RequestURL(r)); err != nil {
				slog.Debug("signed url rejected", "path", r.URL.Path, "error", err)
				forbidden(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// VerifyRequest checks a request's signature outside the middleware chain,
// for handlers that only gate some of the records they serve
func VerifyRequest(signer *signature.Signer, r *http.Request) error {
	return signer.VerifyURL(RequestURL(r))
}

// RequestURL reconstructs the full request URL as observed by the server,
// including the raw query in its original order
func RequestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if forwarded := r.Header.Get("X-Forwarded-Proto"); forwarded != "" {
		scheme = forwarded
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

// Forbidden writes the uniform signed-URL rejection
func Forbidden(w http.ResponseWriter, r *http.Request) {
	forbidden(w, r)
}

func forbidden(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusForbidden)
	render.JSON(w, r, map[string]string{"error": "invalid or expired signature"})
}

func unauthorized(w http.ResponseWriter, r *http.Request, message string) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, map[string]string{"error": message})
}

func credentialFromRequest(r *http.Request) string {
	if key := r.Header.Get(APIKeyHeader); key != "" {
		return key
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}
