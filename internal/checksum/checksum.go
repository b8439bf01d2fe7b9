// Package checksum fingerprints project documents and block manifests.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/starford/atelier/internal/canonical"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Document returns the digest of v's canonical JSON form, so two values
// that differ only in key order or whitespace share a checksum.
func Document(v any) (string, error) {
	data, err := canonical.Marshal(v)
	if err != nil {
		return "", err
	}
	return Sum(data), nil
}
