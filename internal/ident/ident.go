// Package ident derives stable identifiers for project documents.
package ident

import (
	"crypto/rand"
	"crypto/sha1" //nolint:gosec // uniqueness, not security
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// InstanceIDLength is the length of generated block instance ids.
const InstanceIDLength = 12

const delimiter = "::"

// InstanceID derives a block instance id from its first placement on a page.
// It is pure: the same inputs always yield the same 12-character base-36 id.
func InstanceID(pageID, blockID string, index int, seed string) string {
	key := strings.Join([]string{pageID, blockID, strconv.Itoa(index), seed}, delimiter)
	sum := sha1.Sum([]byte(key)) //nolint:gosec
	text := new(big.Int).SetBytes(sum[:]).Text(36)
	if len(text) < InstanceIDLength {
		text = strings.Repeat("0", InstanceIDLength-len(text)) + text
	}
	return text[:InstanceIDLength]
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// SanitizeFileName maps an id to a safe path segment.
func SanitizeFileName(id string) string {
	return unsafeChars.ReplaceAllString(id, "-")
}

const seedAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// SeedLength is the length of seeds produced by NewSeed.
const SeedLength = 16

// NewSeed returns a random base-36 project seed.
func NewSeed() (string, error) {
	buf := make([]byte, SeedLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = seedAlphabet[int(b)%len(seedAlphabet)]
	}
	return string(buf), nil
}

// NewProjectID returns a fresh project id.
func NewProjectID() string {
	return uuid.NewString()
}
