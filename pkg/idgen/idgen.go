// Package idgen assigns opaque, URL-safe, globally-unique identifiers to
// Votes, Commitments, and Reveals.
package idgen

import (
	"crypto/rand"
	"encoding/hex"
)

// New returns a fresh identifier with 128 bits of entropy, encoded as 32
// lowercase hex characters, URL-safe as-is (RFC 3986 unreserved characters
// only).
func New() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}
