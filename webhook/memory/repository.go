package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sleekyom/linkdash/webhook"
)

/* In-memory implementation of webhook.Repository
 * Used by unit tests and as a single-process fallback when no Redis
 * address is configured. Not suitable for multi-instance deployments.
 */
type Repository struct {
	mu         sync.RWMutex
	webhooks   map[string]webhook.Webhook
	deliveries map[string]webhook.Delivery
}

// NewRepository creates an empty in-memory repository
func NewRepository() *Repository {
	return &Repository{
		webhooks:   make(map[string]webhook.Webhook),
		deliveries: make(map[string]webhook.Delivery),
	}
}

// GetWebhook retrieves a webhook by ID
func (r *Repository) GetWebhook(_ context.Context, id string) (webhook.Webhook, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	wh, ok := r.webhooks[id]
	if !ok {
		return webhook.Webhook{}, webhook.ErrNotFound
	}
	return wh, nil
}

// ListWebhooks returns every webhook owned by a dashboard, newest first
func (r *Repository) ListWebhooks(_ context.Context, dashboardID string) ([]webhook.Webhook, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []webhook.Webhook
	for _, wh := range r.webhooks {
		if wh.DashboardID == dashboardID {
			out = append(out, wh)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ActiveWebhooks returns only webhooks with IsActive set
func (r *Repository) ActiveWebhooks(ctx context.Context, dashboardID string) ([]webhook.Webhook, error) {
	all, err := r.ListWebhooks(ctx, dashboardID)
	if err != nil {
		return nil, err
	}
	active := all[:0]
	for _, wh := range all {
		if wh.IsActive {
			active = append(active, wh)
		}
	}
	return active, nil
}

// StoreWebhook persists a new webhook
func (r *Repository) StoreWebhook(_ context.Context, wh webhook.Webhook) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.webhooks[wh.ID] = wh
	return nil
}

// UpdateWebhook replaces an existing webhook
func (r *Repository) UpdateWebhook(_ context.Context, wh webhook.Webhook) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.webhooks[wh.ID]; !ok {
		return webhook.ErrNotFound
	}
	r.webhooks[wh.ID] = wh
	return nil
}

// DeleteWebhook removes the webhook and cascade-deletes its deliveries
func (r *Repository) DeleteWebhook(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.webhooks[id]; !ok {
		return webhook.ErrNotFound
	}
	delete(r.webhooks, id)
	for deliveryID, d := range r.deliveries {
		if d.WebhookID == id {
			delete(r.deliveries, deliveryID)
		}
	}
	return nil
}

// TouchLastTriggered records that a dispatch was attempted
func (r *Repository) TouchLastTriggered(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	wh, ok := r.webhooks[id]
	if !ok {
		return webhook.ErrNotFound
	}
	wh.LastTriggered = time.Now()
	wh.UpdatedAt = time.Now()
	r.webhooks[id] = wh
	return nil
}

// GetDelivery retrieves a delivery record by ID
func (r *Repository) GetDelivery(_ context.Context, id string) (webhook.Delivery, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.deliveries[id]
	if !ok {
		return webhook.Delivery{}, webhook.ErrNotFound
	}
	return d, nil
}

// ListDeliveries returns the most recent deliveries for a webhook
func (r *Repository) ListDeliveries(_ context.Context, webhookID string, limit int) ([]webhook.Delivery, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []webhook.Delivery
	for _, d := range r.deliveries {
		if d.WebhookID == webhookID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CountDeliveriesByStatus returns totals per status name
func (r *Repository) CountDeliveriesByStatus(_ context.Context) (map[string]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[string]int64)
	for _, d := range r.deliveries {
		counts[d.Status.String()]++
	}
	return counts, nil
}

// StoreDelivery persists a new delivery record
func (r *Repository) StoreDelivery(_ context.Context, d webhook.Delivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries[d.ID] = d
	return nil
}

// UpdateDelivery persists the outcome of a delivery attempt
func (r *Repository) UpdateDelivery(_ context.Context, id string, status webhook.Status, attempts int, response string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.deliveries[id]
	if !ok {
		return webhook.ErrNotFound
	}
	d.Status = status
	d.Attempts = attempts
	d.Response = response
	d.UpdatedAt = time.Now()
	r.deliveries[id] = d
	return nil
}

// Close is a no-op for the in-memory repository
func (r *Repository) Close(_ context.Context) error {
	return nil
}

var _ webhook.Repository = (*Repository)(nil)
