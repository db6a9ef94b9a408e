// Package signature implements the HMAC-SHA256 signed-URL protocol that
// gates every privileged or time-limited operation of the relay.
//
// The signed payload is always the full canonicalized URL string (scheme,
// host, path and all query parameters in the order they were appended),
// excluding the signature parameter itself. The signer appends every other
// parameter first and signature last, so a verifier can deterministically
// reconstruct the exact signed string by stripping signature alone.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// Algorithm is the prefix carried by every signature value
	Algorithm = "hmac-sha256"

	// SignatureParam is the query parameter holding the signature
	SignatureParam = "signature"

	// ExpiresParam is the query parameter holding the expiry, a
	// millisecond Unix timestamp
	ExpiresParam = "expires"
)

// Signer computes and verifies HMAC-SHA256 signatures over canonical URL
// payloads
type Signer struct {
	secret []byte
}

// New creates a Signer for the given service secret
func New(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign returns "hmac-sha256=" + hex(HMAC_SHA256(secret, payload))
func (s *Signer) Sign(payload string) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrNoSecretKey
	}
	return Algorithm + "=" + hex.EncodeToString(s.mac(payload)), nil
}

// Verify checks a signature against the payload. The signature is accepted
// with or without the "hmac-sha256=" prefix: only the last "="-delimited
// segment is compared. Signatures that fail to hex-decode are rejected.
// The comparison is constant-time over the decoded bytes.
func (s *Signer) Verify(payload, sig string) bool {
	if len(s.secret) == 0 || sig == "" {
		return false
	}
	if i := strings.LastIndex(sig, "="); i >= 0 {
		sig = sig[i+1:]
	}
	decoded, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	return hmac.Equal(decoded, s.mac(payload))
}

// SignURL signs a fully assembled URL and returns it with the signature
// appended as the final query parameter. The URL must already carry every
// other parameter, including expires.
func (s *Signer) SignURL(rawURL string) (string, error) {
	sig, err := s.Sign(rawURL)
	if err != nil {
		return "", err
	}
	separator := "?"
	if strings.Contains(rawURL, "?") {
		separator = "&"
	}
	return rawURL + separator + SignatureParam + "=" + url.QueryEscape(sig), nil
}

// VerifyURL verifies a signed URL. It strips the signature parameter alone,
// preserving the original order and encoding of every other parameter, and
// checks the signature over the remainder. No URL is considered valid
// without an expires parameter that is present, numeric, and not in the
// past at verification time. Clock skew is not compensated for.
func (s *Signer) VerifyURL(rawURL string) error {
	payload, sig, err := stripSignature(rawURL)
	if err != nil {
		return ErrInvalidSignature
	}
	if sig == "" {
		return ErrMissingSignature
	}

	expires := queryValue(payload, ExpiresParam)
	if expires == "" {
		return ErrMissingExpires
	}
	expiresAt, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return ErrInvalidExpires
	}
	if expiresAt < time.Now().UnixMilli() {
		return ErrExpired
	}

	if !s.Verify(payload, sig) {
		return ErrInvalidSignature
	}
	return nil
}

func (s *Signer) mac(payload string) []byte {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(payload))
	return h.Sum(nil)
}

// stripSignature removes the signature query parameter from a raw URL
// without re-encoding anything else, returning the exact signed payload and
// the decoded signature value.
func stripSignature(rawURL string) (payload, sig string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", err
	}
	if u.RawQuery == "" {
		return rawURL, "", nil
	}

	kept := make([]string, 0, 8)
	for _, pair := range strings.Split(u.RawQuery, "&") {
		key := pair
		if i := strings.Index(pair, "="); i >= 0 {
			key = pair[:i]
		}
		if key == SignatureParam {
			raw := strings.TrimPrefix(pair, SignatureParam)
			raw = strings.TrimPrefix(raw, "=")
			if sig, err = url.QueryUnescape(raw); err != nil {
				return "", "", err
			}
			continue
		}
		kept = append(kept, pair)
	}

	u.RawQuery = strings.Join(kept, "&")
	return u.String(), sig, nil
}

// queryValue extracts a single query parameter from a raw URL without
// disturbing its encoding
func queryValue(rawURL, name string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Query().Get(name)
}
