package utils

import (
	"crypto/sha1"
	"encoding/hex"
)

// HashText returns the SHA-1 hex digest of the UTF-8 bytes of text.
// Used for content dedup and artifact checksums, not for security.
func HashText(text string) string {
	sum := sha1.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}
