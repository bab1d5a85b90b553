package webhook

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerify(t *testing.T) {
	body := []byte(`{"ref":"refs/heads/main"}`)
	secret := "s3cret"
	good := Sign(body, secret)

	assert.True(t, strings.HasPrefix(good, "sha256="))
	assert.Len(t, good, len("sha256=")+64)

	tests := []struct {
		name   string
		body   []byte
		header string
		secret string
		want   bool
	}{
		{"valid", body, good, secret, true},
		{"uppercase hex", body, "sha256=" + strings.ToUpper(good[7:]), secret, true},
		{"wrong secret", body, good, "other", false},
		{"tampered body", []byte(`{"ref":"refs/heads/evil"}`), good, secret, false},
		{"empty secret", body, Sign(body, ""), "", false},
		{"empty header", body, "", secret, false},
		{"no prefix", body, good[7:], secret, false},
		{"sha1 prefix", body, "sha1=" + good[7:], secret, false},
		{"not hex", body, "sha256=zzzz", secret, false},
		{"truncated", body, good[:len(good)-2], secret, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Verify(tt.body, tt.header, tt.secret))
		})
	}
}

func TestIsPushEvent(t *testing.T) {
	assert.True(t, IsPushEvent(""))
	assert.True(t, IsPushEvent("push"))
	assert.False(t, IsPushEvent("ping"))
	assert.False(t, IsPushEvent("pull_request"))
}
