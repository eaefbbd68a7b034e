package signature

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// Header carries the payload signature on outbound deliveries
const Header = "X-Webhook-Signature"

// SecretBytes is the size of generated signing secrets (256 bits)
const SecretBytes = 32

/* Sign computes the hex HMAC-SHA256 of the payload under the secret
 * Deterministic: same payload and secret always yield the same signature
 */
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a received signature using constant-time comparison
func Verify(payload []byte, secret, received string) bool {
	expected := Sign(payload, secret)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(received)) == 1
}

// GenerateSecret creates a new cryptographically secure signing secret,
// hex encoded. Generated once at registration and shown to the subscriber
// a single time.
func GenerateSecret() (string, error) {
	bytes := make([]byte, SecretBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generating random bytes: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}
