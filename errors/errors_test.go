package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	original := New("original")
	wrapped := Wrap(original, "wrapped")

	assert.Contains(t, wrapped.Error(), "wrapped")
	assert.Contains(t, wrapped.Error(), "original")
	assert.True(t, Is(wrapped, original))
}

func TestWithHint(t *testing.T) {
	err := New("error")
	withHint := WithHint(err, "try this fix")

	hints := GetAllHints(withHint)
	require.Len(t, hints, 1)
	assert.Equal(t, "try this fix", hints[0])
}

func TestNilHandling(t *testing.T) {
	assert.Nil(t, Wrap(nil, "context"))
	assert.Nil(t, WrapIO(nil, "context"))
	assert.Nil(t, WrapSync(nil, "context"))
	assert.Nil(t, WrapPublish(nil, "context"))
}

func TestTaxonomy(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"validation", Validationf("text is empty"), ErrValidation},
		{"conflict", Conflictf("hash %s is stale", "abc"), ErrConflict},
		{"not found", NotFoundf("annotation %s", "a1"), ErrNotFound},
		{"io", WrapIO(New("disk full"), "write page"), ErrIO},
		{"sync", WrapSync(New("timeout"), "fetch"), ErrSync},
		{"publish", WrapPublish(New("EACCES"), "swap"), ErrPublish},
	}

	all := []error{ErrValidation, ErrConflict, ErrNotFound, ErrIO, ErrUnauthenticated, ErrSync, ErrPublish}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, Is(tt.err, tt.sentinel))
			for _, other := range all {
				if other == tt.sentinel {
					continue
				}
				assert.False(t, Is(tt.err, other), "unexpectedly marked as %v", other)
			}
		})
	}
}

func TestMarkSurvivesWrapping(t *testing.T) {
	err := Wrap(Conflictf("stale"), "update annotation")

	assert.True(t, IsConflict(err))
	assert.False(t, IsValidation(err))
	assert.Contains(t, err.Error(), "update annotation")
	assert.Contains(t, err.Error(), "stale")
}

func TestWrapIOKeepsCause(t *testing.T) {
	cause := New("permission denied")
	err := WrapIO(cause, "rename page file")

	assert.True(t, Is(err, cause))
	assert.True(t, Is(err, ErrIO))
}

func ExampleValidationf() {
	err := Validationf("unknown annType %q", "shout")
	fmt.Println(err, IsValidation(err))
	// Output: unknown annType "shout" true
}
