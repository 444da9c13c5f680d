// Package commitment implements the commit-reveal hiding primitive (C1):
// hashing a canonical ballot with a voter-chosen salt, and verifying a
// reveal against a stored hash. It is a pure function library — no state
// beyond the named-algorithm registry, which is populated at init() and
// never touched again during a running vote.
package commitment

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"sync"

	"golang.org/x/crypto/blake2b"

	"github.com/luckeedao/votecore/pkg/verr"
)

// separator sits between canonical ballot bytes and the salt so that no
// two distinct (value, salt) pairs can produce the same input string by
// shifting bytes across the boundary.
const separator = 0x7C // '|'

// DefaultAlgorithm is used when a Vote does not pin a specific algorithm.
const DefaultAlgorithm = "sha256"

// HashAlgorithm computes a fixed-length digest over arbitrary bytes.
type HashAlgorithm interface {
	Name() string
	Sum(data []byte) []byte
}

type sha256Algorithm struct{}

func (sha256Algorithm) Name() string { return "sha256" }
func (sha256Algorithm) Sum(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

type blake2bAlgorithm struct{}

func (blake2bAlgorithm) Name() string { return "blake2b" }
func (blake2bAlgorithm) Sum(data []byte) []byte {
	sum := blake2b.Sum256(data)
	return sum[:]
}

var (
	registryMu sync.RWMutex
	registry   = map[string]HashAlgorithm{}
)

func init() {
	Register(sha256Algorithm{})
	Register(blake2bAlgorithm{})
}

// Register adds or replaces a named hash algorithm. Intended for use at
// program init; the registry is read-only once a vote is accepting
// commitments, matching the template registry's init-time-only contract.
func Register(algo HashAlgorithm) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[algo.Name()] = algo
}

// Lookup returns the named algorithm, or an error if it was never
// registered.
func Lookup(name string) (HashAlgorithm, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	algo, ok := registry[name]
	if !ok {
		return nil, verr.New(verr.InvalidConfig, "unknown commitment algorithm %q", name)
	}
	return algo, nil
}

// Algorithms lists every registered algorithm name.
func Algorithms() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

// Commit hashes canonicalBytes concatenated with the separator and salt
// under the named algorithm, returning lowercase hex.
func Commit(algo HashAlgorithm, canonicalBytes, salt []byte) string {
	input := make([]byte, 0, len(canonicalBytes)+1+len(salt))
	input = append(input, canonicalBytes...)
	input = append(input, separator)
	input = append(input, salt...)
	return hex.EncodeToString(algo.Sum(input))
}

// Verify recomputes the commitment for (canonicalBytes, salt) under algo
// and compares it against expectedHex in constant time. Malformed hex in
// expectedHex is treated as a verification failure, not an error.
func Verify(algo HashAlgorithm, canonicalBytes, salt []byte, expectedHex string) bool {
	expected, err := hex.DecodeString(expectedHex)
	if err != nil {
		return false
	}
	actual, err := hex.DecodeString(Commit(algo, canonicalBytes, salt))
	if err != nil {
		return false
	}
	if len(actual) != len(expected) {
		return false
	}
	return subtle.ConstantTimeCompare(actual, expected) == 1
}

// IsValidHashHex reports whether s is a lowercase-hex digest of exactly
// the given byte length (32 bytes / 64 chars for sha256 and blake2b-256).
func IsValidHashHex(s string, byteLen int) bool {
	if len(s) != byteLen*2 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
