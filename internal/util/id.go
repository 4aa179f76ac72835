package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID mints a random 128-bit identifier, hex-encoded, optionally tagged
// with a type prefix ("dog_...", "evt_...").
func NewID(prefix string) string {
	var raw [16]byte
	_, _ = rand.Read(raw[:])
	id := hex.EncodeToString(raw[:])
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}
