package security

import (
	"crypto/sha256"
	"encoding/hex"
)

// LookupHash returns the hex SHA-256 digest used to index a secret without
// storing it in clear.
func LookupHash(value string) string {
	if value == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
