package annotation

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/teranos/redpen/errors"
)

// ContentHash computes the version token for an annotation sequence: the
// lowercase hex SHA-256 of its JSON encoding. Struct field order is fixed, so
// the encoding is deterministic. Order of the sequence is significant.
// An empty or nil sequence hashes as "[]".
func ContentHash(annotations []Annotation) (string, error) {
	if annotations == nil {
		annotations = []Annotation{}
	}
	payload, err := json.Marshal(annotations)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode annotations for hashing")
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// EmptyHash is the content hash of a page with no annotations.
var EmptyHash = mustHash(nil)

func mustHash(annotations []Annotation) string {
	h, err := ContentHash(annotations)
	if err != nil {
		panic(err)
	}
	return h
}
