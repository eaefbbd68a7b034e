package webhook

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a webhook or delivery does not exist.
// Delivery chains use it to detect records removed mid-retry.
var ErrNotFound = errors.New("not found")

/* Small, focused interfaces following "The Go Way"
 * Interfaces abstract behavior, not things
 * Written for users of the API, not just for testing
 */

// WebhookReader provides read operations for webhook subscriptions
type WebhookReader interface {
	/* Context is always the first parameter in functions that do I/O
	 * This allows for cancellation, timeouts, and shared values
	 */
	GetWebhook(ctx context.Context, id string) (Webhook, error)
	// ListWebhooks returns every webhook owned by a dashboard, active or not
	ListWebhooks(ctx context.Context, dashboardID string) ([]Webhook, error)
	// ActiveWebhooks returns only webhooks with IsActive set
	ActiveWebhooks(ctx context.Context, dashboardID string) ([]Webhook, error)
}

// WebhookWriter provides write operations for webhook subscriptions
type WebhookWriter interface {
	StoreWebhook(ctx context.Context, wh Webhook) error
	UpdateWebhook(ctx context.Context, wh Webhook) error
	// DeleteWebhook removes the webhook and its delivery history
	DeleteWebhook(ctx context.Context, id string) error
	// TouchLastTriggered records that a dispatch was attempted, regardless
	// of the delivery outcome
	TouchLastTriggered(ctx context.Context, id string) error
}

// DeliveryReader provides read operations for delivery records
type DeliveryReader interface {
	GetDelivery(ctx context.Context, id string) (Delivery, error)
	ListDeliveries(ctx context.Context, webhookID string, limit int) ([]Delivery, error)
	// CountDeliveriesByStatus returns totals per status name, for metrics
	CountDeliveriesByStatus(ctx context.Context) (map[string]int64, error)
}

// DeliveryWriter provides write operations for delivery records
type DeliveryWriter interface {
	StoreDelivery(ctx context.Context, d Delivery) error
	/* UpdateDelivery persists status, attempts and response for an existing
	 * record. Returns ErrNotFound if the record was deleted concurrently.
	 */
	UpdateDelivery(ctx context.Context, id string, status Status, attempts int, response string) error
}

/* Interface composition - combining small interfaces into larger ones
 * This is preferred over large monolithic interfaces
 */
type Repository interface {
	WebhookReader
	WebhookWriter
	DeliveryReader
	DeliveryWriter
	Close(ctx context.Context) error
}
