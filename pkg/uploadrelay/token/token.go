// Package token parses and encodes the two accepted forms of an API
// credential: a raw secret, or a self-describing base64(JSON) bundle.
package token

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// SecretPrefix is the required prefix convention for service secrets
const SecretPrefix = "sk_"

// DefaultAppID is assumed when a credential does not carry an app ID
const DefaultAppID = "default"

// ErrInvalidToken indicates a credential that is neither a bare secret nor
// a decodable bundle. Parse never lets a decode fault escape as anything
// else.
var ErrInvalidToken = errors.New("invalid token format")

// Credential is the canonical decoded form of an API credential
type Credential struct {
	APIKey     string   `json:"apiKey"`
	AppID      string   `json:"appId"`
	Regions    []string `json:"regions,omitempty"`
	IngestHost string   `json:"ingestHost,omitempty"`
}

// Parse decodes a credential. A token with no "." and at most 64 characters
// is treated as a bare secret with the default app ID. Anything else must be
// base64(JSON) with a string apiKey field; appId falls back to the default
// when absent or non-string.
func Parse(raw string) (Credential, error) {
	if raw == "" {
		return Credential{}, ErrInvalidToken
	}

	if !strings.Contains(raw, ".") && len(raw) <= 64 {
		return Credential{AppID: DefaultAppID, APIKey: raw}, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return Credential{}, ErrInvalidToken
	}

	var fields map[string]any
	if err := json.Unmarshal(decoded, &fields); err != nil {
		return Credential{}, ErrInvalidToken
	}

	apiKey, ok := fields["apiKey"].(string)
	if !ok || apiKey == "" {
		return Credential{}, ErrInvalidToken
	}

	appID, ok := fields["appId"].(string)
	if !ok || appID == "" {
		appID = DefaultAppID
	}

	cred := Credential{APIKey: apiKey, AppID: appID}
	if regions, ok := fields["regions"].([]any); ok {
		for _, r := range regions {
			if region, ok := r.(string); ok {
				cred.Regions = append(cred.Regions, region)
			}
		}
	}
	if host, ok := fields["ingestHost"].(string); ok {
		cred.IngestHost = host
	}

	return cred, nil
}

// Encode serializes a credential as base64(JSON). The API key must follow
// the service's secret prefix convention.
func Encode(cred Credential) (string, error) {
	if !strings.HasPrefix(cred.APIKey, SecretPrefix) {
		return "", fmt.Errorf("api key must start with %q: configure a service secret of the form %sxxxx", SecretPrefix, SecretPrefix)
	}
	if cred.AppID == "" {
		cred.AppID = DefaultAppID
	}

	payload, err := json.Marshal(cred)
	if err != nil {
		return "", fmt.Errorf("failed to encode credential: %w", err)
	}
	return base64.StdEncoding.EncodeToString(payload), nil
}
