package webhook

import "time"

/* Webhook represents a subscription of an HTTP endpoint to dashboard events
 * Uses value semantics as it represents data, not behavior
 */
type Webhook struct {
	ID            string
	DashboardID   string
	URL           string
	Events        EventSet
	Secret        string // empty when the subscriber opted out of signing
	IsActive      bool
	LastTriggered time.Time // zero until the first dispatch attempt
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Subscribed reports whether this webhook should receive the given event.
// Inactive webhooks never match.
func (w Webhook) Subscribed(event Event) bool {
	return w.IsActive && w.Events.Contains(event)
}
