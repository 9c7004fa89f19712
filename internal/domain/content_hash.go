package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ContentHash computes the idempotency hash for a document: the same
// citation, court and body always produce the same hash, so re-posting
// an unchanged document is a no-op for the indexer. Fields are joined
// with a null byte to avoid boundary ambiguity.
func ContentHash(citation, court, body string) string {
	content := strings.TrimSpace(citation) + "\x00" + strings.TrimSpace(court) + "\x00" + strings.TrimSpace(body)
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
