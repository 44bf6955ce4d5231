package webhook

import (
	"crypto/sha256"
	"crypto/subtle"
)

// VerifySecret reports whether provided matches the configured notification
// secret. Both values are hashed first so the comparison time depends on
// neither their contents nor their lengths. An empty configured secret never
// verifies.
func VerifySecret(provided, configured string) bool {
	if configured == "" {
		return false
	}
	p := sha256.Sum256([]byte(provided))
	c := sha256.Sum256([]byte(configured))
	return subtle.ConstantTimeCompare(p[:], c[:]) == 1
}
