package signature

import "errors"

// Signature validation errors. Callers facing the network must collapse
// these into a single undistinguishable outcome; the distinct values exist
// for logs and tests only.
var (
	// ErrNoSecretKey is returned when attempting to sign without a configured secret
	ErrNoSecretKey = errors.New("signature: no secret key configured")

	// ErrMissingSignature is returned when the signature query parameter is missing
	ErrMissingSignature = errors.New("signature: missing signature parameter")

	// ErrMissingExpires is returned when the expires query parameter is missing
	ErrMissingExpires = errors.New("signature: missing expires parameter")

	// ErrInvalidExpires is returned when the expires parameter is not a valid timestamp
	ErrInvalidExpires = errors.New("signature: invalid expires parameter")

	// ErrExpired is returned when the signed URL has expired
	ErrExpired = errors.New("signature: URL has expired")

	// ErrInvalidSignature is returned when the signature does not verify
	ErrInvalidSignature = errors.New("signature: invalid signature")
)

// IsVerificationError reports whether the error is any signed-URL
// verification failure
func IsVerificationError(err error) bool {
	return errors.Is(err, ErrMissingSignature) ||
		errors.Is(err, ErrMissingExpires) ||
		errors.Is(err, ErrInvalidExpires) ||
		errors.Is(err, ErrExpired) ||
		errors.Is(err, ErrInvalidSignature)
}
