package guard

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/upload-relay/pkg/uploadrelay/signature"
)

const testSecret = "sk_test_secret"

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAPIKey(t *testing.T) {
	bundle := base64.StdEncoding.EncodeToString([]byte(`{"apiKey":"` + testSecret + `","appId":"myapp"}`))

	tests := []struct {
		name       string
		header     string
		value      string
		wantStatus int
	}{
		{"bare secret", "x-uploadthing-api-key", testSecret, http.StatusOK},
		{"encoded bundle", "x-uploadthing-api-key", bundle, http.StatusOK},
		{"bearer token", "Authorization", "Bearer " + testSecret, http.StatusOK},
		{"missing credential", "", "", http.StatusUnauthorized},
		{"wrong key", "x-uploadthing-api-key", "sk_wrong", http.StatusUnauthorized},
		{"undecodable", "x-uploadthing-api-key", "not-base64-but-has.dot", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/listFiles", nil)
			if tt.header == "Authorization" {
				r.Header.Set("Authorization", tt.value)
			} else if tt.header != "" {
				r.Header.Set(APIKeyHeader, tt.value)
			}

			w := httptest.NewRecorder()
			RequireAPIKey(testSecret)(okHandler()).ServeHTTP(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestRequireSignedURL(t *testing.T) {
	signer := signature.New(testSecret)
	expires := strconv.FormatInt(time.Now().Add(time.Hour).UnixMilli(), 10)
	expired := strconv.FormatInt(time.Now().Add(-time.Hour).UnixMilli(), 10)

	signedURL, err := signer.SignURL("http://relay.test/ingest/abc?name=a.txt&size=1&expires=" + expires)
	require.NoError(t, err)

	expiredURL, err := signer.SignURL("http://relay.test/ingest/abc?expires=" + expired)
	require.NoError(t, err)

	foreignURL, err := signature.New("sk_other").SignURL("http://relay.test/ingest/abc?expires=" + expires)
	require.NoError(t, err)

	tests := []struct {
		name       string
		url        string
		wantStatus int
	}{
		{"valid", signedURL, http.StatusOK},
		{"expired", expiredURL, http.StatusForbidden},
		{"wrong secret", foreignURL, http.StatusForbidden},
		{"unsigned", "http://relay.test/ingest/abc?expires=" + expires, http.StatusForbidden},
		{"no expires", mustSign(t, signer, "http://relay.test/ingest/abc?name=a.txt"), http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPut, tt.url, nil)
			w := httptest.NewRecorder()
			RequireSignedURL(signer)(okHandler()).ServeHTTP(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusForbidden {
				// Every rejection is byte-identical so the guard leaks
				// nothing about which check failed.
				assert.JSONEq(t, `{"error":"invalid or expired signature"}`, w.Body.String())
			}
		})
	}
}

func mustSign(t *testing.T, signer *signature.Signer, raw string) string {
	t.Helper()
	signed, err := signer.SignURL(raw)
	require.NoError(t, err)
	return signed
}

func TestRequestURLReconstruction(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://relay.test/f/key?expires=1&signature=x", nil)
	assert.Equal(t, "http://relay.test/f/key?expires=1&signature=x", RequestURL(r))

	r.Header.Set("X-Forwarded-Proto", "https")
	assert.Equal(t, "https://relay.test/f/key?expires=1&signature=x", RequestURL(r))
}
