package token

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func TestParseBareSecret(t *testing.T) {
	cred, err := Parse("sk_live_abc123")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cred.APIKey != "sk_live_abc123" {
		t.Errorf("Parse() apiKey = %q, want %q", cred.APIKey, "sk_live_abc123")
	}
	if cred.AppID != DefaultAppID {
		t.Errorf("Parse() appId = %q, want %q", cred.AppID, DefaultAppID)
	}
}

func TestParseEncodedBundle(t *testing.T) {
	raw := base64.StdEncoding.EncodeToString([]byte(
		`{"apiKey":"sk_live_abc","appId":"myapp","regions":["us-east-1","eu-west-1"],"ingestHost":"https://relay.example.com"}`))

	cred, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cred.APIKey != "sk_live_abc" {
		t.Errorf("Parse() apiKey = %q, want %q", cred.APIKey, "sk_live_abc")
	}
	if cred.AppID != "myapp" {
		t.Errorf("Parse() appId = %q, want %q", cred.AppID, "myapp")
	}
	if len(cred.Regions) != 2 || cred.Regions[0] != "us-east-1" {
		t.Errorf("Parse() regions = %v", cred.Regions)
	}
	if cred.IngestHost != "https://relay.example.com" {
		t.Errorf("Parse() ingestHost = %q", cred.IngestHost)
	}
}

func TestParseDefaultsMissingAppID(t *testing.T) {
	raw := base64.StdEncoding.EncodeToString([]byte(`{"apiKey":"sk_x"}`))

	cred, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cred.AppID != DefaultAppID {
		t.Errorf("Parse() appId = %q, want %q", cred.AppID, DefaultAppID)
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"dot but not base64", "not-base64-but-has.dot"},
		{"over 64 chars and not base64", strings.Repeat("!", 70)},
		{"base64 but not json", base64.StdEncoding.EncodeToString([]byte("plain text that is long enough to overflow the bare secret limit aaaa"))},
		{"json without apiKey", base64.StdEncoding.EncodeToString([]byte(`{"appId":"myapp"}`))},
		{"json with non-string apiKey", base64.StdEncoding.EncodeToString([]byte(`{"apiKey":42}`))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.raw); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Parse(%q) error = %v, want ErrInvalidToken", tt.raw, err)
			}
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	encoded, err := Encode(Credential{
		APIKey:     "sk_live_abc",
		AppID:      "myapp",
		Regions:    []string{"us-east-1"},
		IngestHost: "https://relay.example.com",
	})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	cred, err := Parse(encoded)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cred.APIKey != "sk_live_abc" || cred.AppID != "myapp" {
		t.Errorf("round trip = %+v", cred)
	}
}

func TestEncodeRequiresPrefix(t *testing.T) {
	_, err := Encode(Credential{APIKey: "live_abc"})
	if err == nil {
		t.Fatal("Encode() accepted a key without the secret prefix")
	}
	if !strings.Contains(err.Error(), SecretPrefix) {
		t.Errorf("Encode() error = %q, want mention of the required prefix", err)
	}
}

func TestEncodeDefaultsAppID(t *testing.T) {
	encoded, err := Encode(Credential{APIKey: "sk_x"})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	cred, err := Parse(encoded)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cred.AppID != DefaultAppID {
		t.Errorf("Parse() appId = %q, want %q", cred.AppID, DefaultAppID)
	}
}
