package webhook

import "time"

const (
	// MaxAttempts is the ceiling of HTTP attempts per delivery chain
	MaxAttempts = 3

	// ResponseLimit bounds the stored response body or error text
	ResponseLimit = 1000
)

/* Delivery is one attempt-chain notifying a single webhook of a single
 * event occurrence. Created pending before the first attempt; Payload is
 * immutable once set; terminal records are never mutated again.
 */
type Delivery struct {
	ID        string
	WebhookID string
	Event     Event
	Payload   []byte
	Status    Status
	Attempts  int
	Response  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Truncate bounds response bodies and error text before storage
func Truncate(s string) string {
	if len(s) > ResponseLimit {
		return s[:ResponseLimit]
	}
	return s
}
