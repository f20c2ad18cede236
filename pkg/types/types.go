// Package types defines the wire-level data structures shared across the
// shielded pipeline: identifiers, amounts, output descriptions, and the
// compact block forms consumed by the scanner.
package types

import "encoding/hex"

// HashSize is the size of a block or transaction identifier in bytes
const HashSize = 32

// Hash represents a 32-byte block or transaction identifier
type Hash [HashSize]byte

// EmptyHash is the zero hash
var EmptyHash = Hash{}

// IsEmpty returns true if the hash is empty (all zeros)
func (h Hash) IsEmpty() bool {
	return h == EmptyHash
}

// Bytes returns the hash as a byte slice
func (h Hash) Bytes() []byte {
	return h[:]
}

// String returns the hex string representation of the hash
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// HashFromBytes creates a Hash from a byte slice
func HashFromBytes(b []byte) Hash {
	var h Hash
	if len(b) >= HashSize {
		copy(h[:], b[:HashSize])
	}
	return h
}
