package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sleekyom/linkdash/webhook"
)

/* Redis implementation of webhook.Repository
 * Uses Redis Hashes for webhook and delivery records, a Set per dashboard
 * as the webhook index, and a List per webhook as the delivery index
 */

const (
	webhookPrefix   = "webhook"    // Hash naming: webhook:{webhook_id}
	deliveryPrefix  = "delivery"   // Hash naming: delivery:{delivery_id}
	dashboardPrefix = "dashboard"  // Index naming: dashboard:{dashboard_id}:webhooks
	statusCountsKey = "deliveries:status_counts"
)

type Repository struct {
	client *redis.Client
}

// NewRepository creates a new Redis repository
func NewRepository(addr, password string, db int) (*Repository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to Redis: %w", err)
	}

	return &Repository{
		client: client,
	}, nil
}

// StoreWebhook persists a webhook hash and indexes it under its dashboard
func (r *Repository) StoreWebhook(ctx context.Context, wh webhook.Webhook) error {
	hashKey := webhookKey(wh.ID)

	err := r.client.HSet(ctx, hashKey, map[string]interface{}{
		"id":             wh.ID,
		"dashboard_id":   wh.DashboardID,
		"url":            wh.URL,
		"events":         wh.Events.Join(),
		"secret":         wh.Secret,
		"is_active":      boolField(wh.IsActive),
		"last_triggered": wh.LastTriggered.Unix(),
		"created_at":     wh.CreatedAt.Unix(),
		"updated_at":     wh.UpdatedAt.Unix(),
	}).Err()
	if err != nil {
		return fmt.Errorf("storing webhook: %w", err)
	}

	err = r.client.SAdd(ctx, dashboardIndexKey(wh.DashboardID), wh.ID).Err()
	if err != nil {
		return fmt.Errorf("indexing webhook: %w", err)
	}

	return nil
}

// GetWebhook retrieves a webhook by ID from its Redis hash
func (r *Repository) GetWebhook(ctx context.Context, id string) (webhook.Webhook, error) {
	data, err := r.client.HGetAll(ctx, webhookKey(id)).Result()
	if err != nil {
		return webhook.Webhook{}, fmt.Errorf("getting webhook: %w", err)
	}
	if len(data) == 0 {
		return webhook.Webhook{}, fmt.Errorf("webhook %s: %w", id, webhook.ErrNotFound)
	}
	return webhookFromHash(data), nil
}

// ListWebhooks returns every webhook owned by a dashboard
func (r *Repository) ListWebhooks(ctx context.Context, dashboardID string) ([]webhook.Webhook, error) {
	ids, err := r.client.SMembers(ctx, dashboardIndexKey(dashboardID)).Result()
	if err != nil {
		return nil, fmt.Errorf("reading dashboard index: %w", err)
	}

	webhooks := make([]webhook.Webhook, 0, len(ids))
	for _, id := range ids {
		wh, err := r.GetWebhook(ctx, id)
		if err != nil {
			// Index entries can outlive a concurrently deleted hash
			continue
		}
		webhooks = append(webhooks, wh)
	}
	return webhooks, nil
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

// UpdateWebhook replaces the mutable fields of an existing webhook
func (r *Repository) UpdateWebhook(ctx context.Context, wh webhook.Webhook) error {
	exists, err := r.client.Exists(ctx, webhookKey(wh.ID)).Result()
	if err != nil {
		return fmt.Errorf("checking webhook: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("webhook %s: %w", wh.ID, webhook.ErrNotFound)
	}

	err = r.client.HSet(ctx, webhookKey(wh.ID), map[string]interface{}{
		"url":        wh.URL,
		"events":     wh.Events.Join(),
		"is_active":  boolField(wh.IsActive),
		"updated_at": time.Now().Unix(),
	}).Err()
	if err != nil {
		return fmt.Errorf("updating webhook: %w", err)
	}
	return nil
}

// DeleteWebhook removes the webhook, its index entry and its delivery history
func (r *Repository) DeleteWebhook(ctx context.Context, id string) error {
	wh, err := r.GetWebhook(ctx, id)
	if err != nil {
		return err
	}

	deliveryIDs, err := r.client.LRange(ctx, deliveryIndexKey(id), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("reading delivery index: %w", err)
	}

	keys := make([]string, 0, len(deliveryIDs)+2)
	for _, deliveryID := range deliveryIDs {
		keys = append(keys, deliveryKey(deliveryID))
	}
	keys = append(keys, deliveryIndexKey(id), webhookKey(id))

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("deleting webhook: %w", err)
	}
	if err := r.client.SRem(ctx, dashboardIndexKey(wh.DashboardID), id).Err(); err != nil {
		return fmt.Errorf("removing webhook from index: %w", err)
	}
	return nil
}

// TouchLastTriggered records that a dispatch was attempted
func (r *Repository) TouchLastTriggered(ctx context.Context, id string) error {
	exists, err := r.client.Exists(ctx, webhookKey(id)).Result()
	if err != nil {
		return fmt.Errorf("checking webhook: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("webhook %s: %w", id, webhook.ErrNotFound)
	}

	err = r.client.HSet(ctx, webhookKey(id), map[string]interface{}{
		"last_triggered": time.Now().Unix(),
		"updated_at":     time.Now().Unix(),
	}).Err()
	if err != nil {
		return fmt.Errorf("updating last triggered: %w", err)
	}
	return nil
}

// StoreDelivery persists a delivery hash and indexes it, newest first
func (r *Repository) StoreDelivery(ctx context.Context, d webhook.Delivery) error {
	err := r.client.HSet(ctx, deliveryKey(d.ID), map[string]interface{}{
		"id":         d.ID,
		"webhook_id": d.WebhookID,
		"event":      d.Event.String(),
		"payload":    d.Payload,
		"status":     d.Status.String(),
		"attempts":   d.Attempts,
		"response":   d.Response,
		"created_at": d.CreatedAt.Unix(),
		"updated_at": d.UpdatedAt.Unix(),
	}).Err()
	if err != nil {
		return fmt.Errorf("storing delivery: %w", err)
	}

	if err := r.client.LPush(ctx, deliveryIndexKey(d.WebhookID), d.ID).Err(); err != nil {
		return fmt.Errorf("indexing delivery: %w", err)
	}
	if err := r.client.HIncrBy(ctx, statusCountsKey, d.Status.String(), 1).Err(); err != nil {
		return fmt.Errorf("counting delivery: %w", err)
	}
	return nil
}

// GetDelivery retrieves a delivery record by ID
func (r *Repository) GetDelivery(ctx context.Context, id string) (webhook.Delivery, error) {
	data, err := r.client.HGetAll(ctx, deliveryKey(id)).Result()
	if err != nil {
		return webhook.Delivery{}, fmt.Errorf("getting delivery: %w", err)
	}
	if len(data) == 0 {
		return webhook.Delivery{}, fmt.Errorf("delivery %s: %w", id, webhook.ErrNotFound)
	}

	return webhook.Delivery{
		ID:        data["id"],
		WebhookID: data["webhook_id"],
		Event:     webhook.Event(data["event"]),
		Payload:   []byte(data["payload"]),
		Status:    webhook.NewStatus(data["status"]),
		Attempts:  int(parseInt64(data["attempts"])),
		Response:  data["response"],
		CreatedAt: time.Unix(parseInt64(data["created_at"]), 0),
		UpdatedAt: time.Unix(parseInt64(data["updated_at"]), 0),
	}, nil
}

// ListDeliveries returns the most recent deliveries for a webhook
func (r *Repository) ListDeliveries(ctx context.Context, webhookID string, limit int) ([]webhook.Delivery, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	ids, err := r.client.LRange(ctx, deliveryIndexKey(webhookID), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("reading delivery index: %w", err)
	}

	deliveries := make([]webhook.Delivery, 0, len(ids))
	for _, id := range ids {
		d, err := r.GetDelivery(ctx, id)
		if err != nil {
			continue
		}
		deliveries = append(deliveries, d)
	}
	return deliveries, nil
}

// CountDeliveriesByStatus returns totals per status name
func (r *Repository) CountDeliveriesByStatus(ctx context.Context) (map[string]int64, error) {
	data, err := r.client.HGetAll(ctx, statusCountsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("reading status counts: %w", err)
	}
	counts := make(map[string]int64, len(data))
	for status, raw := range data {
		counts[status] = parseInt64(raw)
	}
	return counts, nil
}

/* UpdateDelivery persists the outcome of an attempt and keeps the status
 * counters in sync with the pending -> terminal transition
 */
func (r *Repository) UpdateDelivery(ctx context.Context, id string, status webhook.Status, attempts int, response string) error {
	previous, err := r.GetDelivery(ctx, id)
	if err != nil {
		return err
	}

	err = r.client.HSet(ctx, deliveryKey(id), map[string]interface{}{
		"status":     status.String(),
		"attempts":   attempts,
		"response":   response,
		"updated_at": time.Now().Unix(),
	}).Err()
	if err != nil {
		return fmt.Errorf("updating delivery: %w", err)
	}

	if previous.Status != status {
		r.client.HIncrBy(ctx, statusCountsKey, previous.Status.String(), -1)
		r.client.HIncrBy(ctx, statusCountsKey, status.String(), 1)
	}
	return nil
}

// Close closes the Redis connection
func (r *Repository) Close(ctx context.Context) error {
	return r.client.Close()
}

// Helper functions

func webhookFromHash(data map[string]string) webhook.Webhook {
	return webhook.Webhook{
		ID:            data["id"],
		DashboardID:   data["dashboard_id"],
		URL:           data["url"],
		Events:        webhook.ParseEvents(data["events"]),
		Secret:        data["secret"],
		IsActive:      data["is_active"] == "1",
		LastTriggered: unixField(data["last_triggered"]),
		CreatedAt:     unixField(data["created_at"]),
		UpdatedAt:     unixField(data["updated_at"]),
	}
}

// unixField maps non-positive stored values back to the zero time,
// so a never-triggered webhook round-trips as zero
func unixField(s string) time.Time {
	unix := parseInt64(s)
	if unix <= 0 {
		return time.Time{}
	}
	return time.Unix(unix, 0)
}

func webhookKey(id string) string {
	return fmt.Sprintf("%s:%s", webhookPrefix, id)
}

func deliveryKey(id string) string {
	return fmt.Sprintf("%s:%s", deliveryPrefix, id)
}

func dashboardIndexKey(dashboardID string) string {
	return fmt.Sprintf("%s:%s:webhooks", dashboardPrefix, dashboardID)
}

func deliveryIndexKey(webhookID string) string {
	return fmt.Sprintf("%s:%s:deliveries", webhookPrefix, webhookID)
}

func boolField(b bool) int {
	if b {
		return 1
	}
	return 0
}

func parseInt64(s string) int64 {
	var result int64
	fmt.Sscanf(s, "%d", &result)
	return result
}

var _ webhook.Repository = (*Repository)(nil)
