package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashFingerprint returns a short hex digest of a caller fingerprint.
// Raw client IPs stay out of log records and usage rows; the digest is still
// stable enough to correlate requests from one caller.
func HashFingerprint(fingerprint string) string {
	sum := sha256.Sum256([]byte(fingerprint))
	return hex.EncodeToString(sum[:8])
}
