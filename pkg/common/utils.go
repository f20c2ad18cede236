// Package common provides shared byte and hex utilities.
package common

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
)

// ErrInvalidHex is returned when a hex string does not decode
var ErrInvalidHex = errors.New("invalid hex string")

// HexToBytes converts a hex string to bytes
func HexToBytes(s string) ([]byte, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidHex
	}
	return b, nil
}

// BytesToHex converts bytes to a hex string
func BytesToHex(b []byte) string {
	return hex.EncodeToString(b)
}

// RandomBytes generates n random bytes
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}
