package tenancy

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// API-key wire format (§6.4): an opaque printable token with a stable
// prefix, SHA-256 hashed for storage. Unlike the donor's project-embedding
// scheme (bk_proj_{projectID}_{secret}, which resolves the project without a
// database round trip), this format carries no structured information — the
// project is resolved exclusively via a keyHash lookup (§4.5), so a leaked
// key prefix alone reveals nothing about its owner.
const (
	apiKeyTokenPrefix = "tr-"
	apiKeySecretBytes = 24 // -> 24 characters from the 62-character alphanumeric charset below
	// KeyPrefixLen is how many leading characters of the full token are
	// stored in the clear for UI display (§3.1 "keyPrefix").
	KeyPrefixLen = 12
)

// GenerateAPIKeyToken returns a new opaque plaintext token. The caller must
// persist only HashAPIKeyToken(token) and Prefix(token); the plaintext is
// returned to the client exactly once (§3.1).
func GenerateAPIKeyToken() (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	raw := make([]byte, apiKeySecretBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate api key secret: %w", err)
	}

	secret := make([]byte, len(raw))
	for i, b := range raw {
		secret[i] = charset[b%byte(len(charset))]
	}

	return apiKeyTokenPrefix + string(secret), nil
}

// HashAPIKeyToken computes the SHA-256 hash stored as APIKey.KeyHash.
func HashAPIKeyToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// KeyPreviewPrefix returns the first KeyPrefixLen characters of a token for
// UI display; this is what APIKey.KeyPrefix stores, never the full token.
func KeyPreviewPrefix(token string) string {
	if len(token) <= KeyPrefixLen {
		return token
	}
	return token[:KeyPrefixLen]
}
