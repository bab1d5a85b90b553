// Package webhook authenticates publish triggers signed with a shared secret.
//
// Signatures use the GitHub scheme: the X-Hub-Signature-256 header carries
// "sha256=" followed by the lowercase hex HMAC-SHA256 of the raw request body.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const (
	// SignatureHeader carries the body signature.
	SignatureHeader = "X-Hub-Signature-256"
	// EventHeader names the delivery event type.
	EventHeader = "X-GitHub-Event"

	algoPrefix = "sha256="
)

// Verify reports whether header is a valid signature of body under secret.
// An empty secret never verifies. Malformed headers return false.
func Verify(body []byte, header, secret string) bool {
	if secret == "" || header == "" {
		return false
	}
	algo, sig, ok := strings.Cut(header, "=")
	if !ok || algo != "sha256" {
		return false
	}
	provided, err := hex.DecodeString(sig)
	if err != nil || len(provided) != sha256.Size {
		return false
	}
	return hmac.Equal(mac(body, secret), provided)
}

// Sign returns the header value Verify accepts for body.
func Sign(body []byte, secret string) string {
	return algoPrefix + hex.EncodeToString(mac(body, secret))
}

// IsPushEvent reports whether an event header names a push. A missing header
// is treated as a push so plain signed POSTs still trigger a sync.
func IsPushEvent(event string) bool {
	return event == "" || event == "push"
}

func mac(body []byte, secret string) []byte {
	m := hmac.New(sha256.New, []byte(secret))
	m.Write(body)
	return m.Sum(nil)
}
