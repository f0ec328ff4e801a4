package utils

import (
	"crypto/rand"
	"encoding/base64"
)

// GenerateSecureCode returns 32 bytes of randomness encoded URL-safe
// without padding, suitable for QR code material.
func GenerateSecureCode() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// MustGenerateSecureCode panics if the system randomness source fails,
// which is not a condition worth handling per call site.
func MustGenerateSecureCode() string {
	code, err := GenerateSecureCode()
	if err != nil {
		panic("failed to generate secure code: " + err.Error())
	}
	return code
}
