// Package checksum fingerprints persisted slot values so a session can tell
// its own writes apart from edits made by another process.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of a slot value.
func Sum(value string) string {
	h := sha256.Sum256([]byte(value))
	return hex.EncodeToString(h[:])
}

// Changed reports whether value differs from the value last fingerprinted as
// sum. An empty sum means nothing was seen yet, so any value counts as changed.
func Changed(value, sum string) bool {
	return sum == "" || Sum(value) != sum
}
