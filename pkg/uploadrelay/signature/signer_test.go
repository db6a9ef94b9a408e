package signature

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"
)

func futureExpires() string {
	return strconv.FormatInt(time.Now().Add(time.Hour).UnixMilli(), 10)
}

func TestSignVerifyRoundTrip(t *testing.T) {
	signer := New("sk_test_secret")
	payload := "https://relay.example.com/ingest/abc?name=report.pdf&size=1024&expires=" + futureExpires()

	sig, err := signer.Sign(payload)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	if !strings.HasPrefix(sig, Algorithm+"=") {
		t.Errorf("Sign() = %q, want %q prefix", sig, Algorithm+"=")
	}
	if !signer.Verify(payload, sig) {
		t.Error("Verify() rejected a freshly signed payload")
	}
}

func TestVerifyAcceptsBareHex(t *testing.T) {
	signer := New("sk_test_secret")
	payload := "https://relay.example.com/ingest/abc"

	sig, err := signer.Sign(payload)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	bare := strings.TrimPrefix(sig, Algorithm+"=")
	if !signer.Verify(payload, bare) {
		t.Error("Verify() rejected a prefix-stripped signature")
	}
}

func TestVerifyRejectsMutations(t *testing.T) {
	signer := New("sk_test_secret")
	payload := "https://relay.example.com/ingest/abc?name=a.txt&size=1"

	sig, err := signer.Sign(payload)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	tests := []struct {
		name    string
		payload string
		sig     string
	}{
		{"payload changed", payload + "x", sig},
		{"signature truncated", payload, sig[:len(sig)-2]},
		{"signature not hex", payload, Algorithm + "=zzzz"},
		{"signature empty", payload, ""},
		{"wrong secret", payload, mustSign(t, New("sk_other"), payload)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if signer.Verify(tt.payload, tt.sig) {
				t.Error("Verify() accepted a bad signature")
			}
		})
	}
}

func mustSign(t *testing.T, s *Signer, payload string) string {
	t.Helper()
	sig, err := s.Sign(payload)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	return sig
}

func TestSignWithEmptySecret(t *testing.T) {
	signer := New("")
	if _, err := signer.Sign("payload"); !errors.Is(err, ErrNoSecretKey) {
		t.Errorf("Sign() error = %v, want ErrNoSecretKey", err)
	}
	if signer.Verify("payload", "hmac-sha256=abcd") {
		t.Error("Verify() accepted a signature with no secret configured")
	}
}

func TestSignURLVerifyURLRoundTrip(t *testing.T) {
	signer := New("sk_test_secret")
	rawURL := "https://relay.example.com/ingest/abc?name=report%20final.pdf&size=1024&acl=private&expires=" + futureExpires()

	signed, err := signer.SignURL(rawURL)
	if err != nil {
		t.Fatalf("SignURL() error = %v", err)
	}
	if !strings.Contains(signed, "&"+SignatureParam+"=") {
		t.Errorf("SignURL() = %q, want signature appended as final parameter", signed)
	}
	if err := signer.VerifyURL(signed); err != nil {
		t.Errorf("VerifyURL() error = %v", err)
	}
}

func TestVerifyURLFailures(t *testing.T) {
	signer := New("sk_test_secret")
	expires := futureExpires()
	past := strconv.FormatInt(time.Now().Add(-time.Minute).UnixMilli(), 10)

	sign := func(raw string) string {
		signed, err := signer.SignURL(raw)
		if err != nil {
			t.Fatalf("SignURL() error = %v", err)
		}
		return signed
	}

	tests := []struct {
		name    string
		url     string
		wantErr error
	}{
		{
			name:    "missing signature",
			url:     "https://relay.example.com/ingest/abc?expires=" + expires,
			wantErr: ErrMissingSignature,
		},
		{
			name:    "missing expires",
			url:     sign("https://relay.example.com/ingest/abc?name=a.txt"),
			wantErr: ErrMissingExpires,
		},
		{
			name:    "non-numeric expires",
			url:     sign("https://relay.example.com/ingest/abc?expires=tomorrow"),
			wantErr: ErrInvalidExpires,
		},
		{
			name:    "expired",
			url:     sign("https://relay.example.com/ingest/abc?expires=" + past),
			wantErr: ErrExpired,
		},
		{
			name:    "tampered parameter",
			url:     strings.Replace(sign("https://relay.example.com/ingest/abc?size=10&expires="+expires), "size=10", "size=99", 1),
			wantErr: ErrInvalidSignature,
		},
		{
			name:    "wrong secret",
			url:     mustSignURL(t, New("sk_other"), "https://relay.example.com/ingest/abc?expires="+expires),
			wantErr: ErrInvalidSignature,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := signer.VerifyURL(tt.url)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("VerifyURL() error = %v, want %v", err, tt.wantErr)
			}
			if !IsVerificationError(err) {
				t.Errorf("IsVerificationError(%v) = false, want true", err)
			}
		})
	}
}

func mustSignURL(t *testing.T, s *Signer, raw string) string {
	t.Helper()
	signed, err := s.SignURL(raw)
	if err != nil {
		t.Fatalf("SignURL() error = %v", err)
	}
	return signed
}

// The verifier must reconstruct the signed payload exactly, no matter where
// the signature parameter sits or how the other parameters are encoded.
func TestStripSignaturePreservesEncoding(t *testing.T) {
	payload := "https://relay.example.com/ingest/abc?name=caf%C3%A9%20menu.pdf&size=42&expires=" + futureExpires()
	signer := New("sk_test_secret")

	signed, err := signer.SignURL(payload)
	if err != nil {
		t.Fatalf("SignURL() error = %v", err)
	}

	stripped, sig, err := stripSignature(signed)
	if err != nil {
		t.Fatalf("stripSignature() error = %v", err)
	}
	if stripped != payload {
		t.Errorf("stripSignature() payload = %q, want %q", stripped, payload)
	}
	if sig == "" {
		t.Error("stripSignature() returned an empty signature")
	}
}

func TestVerifyURLBoundaryExpiry(t *testing.T) {
	signer := New("sk_test_secret")

	// An expiry comfortably in the future must pass; one in the past must
	// not, with no grace window.
	justPast := time.Now().Add(-10 * time.Millisecond).UnixMilli()
	signed, err := signer.SignURL(fmt.Sprintf("https://relay.example.com/f/k?expires=%d", justPast))
	if err != nil {
		t.Fatalf("SignURL() error = %v", err)
	}
	if err := signer.VerifyURL(signed); !errors.Is(err, ErrExpired) {
		t.Errorf("VerifyURL() error = %v, want ErrExpired", err)
	}
}
