// Package randutil implements random utilities.
package randutil

import (
	"encoding/hex"
	"math/rand"
)

const chars = "0123456789abcdefghijklmnopqrstuvwxyz"

// String returns a random string of length "n".
func String(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = chars[rand.Intn(len(chars))]
	}
	return string(b)
}

// Bytes returns random bytes of length "n".
func Bytes(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(rand.Intn(256))
	}
	return b
}

// Hex returns a random hex-encoded string of length "n".
func Hex(n int) string {
	b := Bytes(n)
	s := hex.EncodeToString(b)
	if len(s) > n {
		s = s[:n]
	}
	return s
}
