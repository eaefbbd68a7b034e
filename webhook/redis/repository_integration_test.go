//go:build integration

package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/sleekyom/linkdash/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testWebhook(id, dashboardID string, active bool) webhook.Webhook {
	return webhook.Webhook{
		ID:          id,
		DashboardID: dashboardID,
		URL:         "https://example.com/hooks/" + id,
		Events:      webhook.NewEventSet("link.created", "link.clicked"),
		Secret:      "test-secret",
		IsActive:    active,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
}

func TestRepository_Webhooks_Integration(t *testing.T) {
	ctx := context.Background()

	t.Run("store and retrieve webhook", func(t *testing.T) {
		redisContainer, cleanup := SetupRedisContainer(t, ctx)
		defer cleanup()

		repo := CreateTestRepository(t, redisContainer.Addr)
		defer repo.Close(ctx)

		wh := testWebhook(GenerateID(t, "wh"), "dash-1", true)
		require.NoError(t, repo.StoreWebhook(ctx, wh))

		retrieved, err := repo.GetWebhook(ctx, wh.ID)
		require.NoError(t, err)

		assert.Equal(t, wh.ID, retrieved.ID)
		assert.Equal(t, wh.DashboardID, retrieved.DashboardID)
		assert.Equal(t, wh.URL, retrieved.URL)
		assert.Equal(t, wh.Secret, retrieved.Secret)
		assert.True(t, retrieved.IsActive)
		assert.True(t, retrieved.Events.Contains(webhook.LinkCreated))
		assert.True(t, retrieved.Events.Contains(webhook.LinkClicked))
		assert.False(t, retrieved.Events.Contains(webhook.LinkDeleted))
		// Never triggered yet
		assert.True(t, retrieved.LastTriggered.IsZero())
	})

	t.Run("get missing webhook returns not found", func(t *testing.T) {
		redisContainer, cleanup := SetupRedisContainer(t, ctx)
		defer cleanup()

		repo := CreateTestRepository(t, redisContainer.Addr)
		defer repo.Close(ctx)

		_, err := repo.GetWebhook(ctx, "missing")
		assert.ErrorIs(t, err, webhook.ErrNotFound)
	})

	t.Run("list is scoped to the dashboard", func(t *testing.T) {
		redisContainer, cleanup := SetupRedisContainer(t, ctx)
		defer cleanup()

		repo := CreateTestRepository(t, redisContainer.Addr)
		defer repo.Close(ctx)

		require.NoError(t, repo.StoreWebhook(ctx, testWebhook("wh-1", "dash-1", true)))
		require.NoError(t, repo.StoreWebhook(ctx, testWebhook("wh-2", "dash-1", false)))
		require.NoError(t, repo.StoreWebhook(ctx, testWebhook("wh-3", "dash-2", true)))

		all, err := repo.ListWebhooks(ctx, "dash-1")
		require.NoError(t, err)
		assert.Len(t, all, 2)

		active, err := repo.ActiveWebhooks(ctx, "dash-1")
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, "wh-1", active[0].ID)
	})

	t.Run("update replaces mutable fields", func(t *testing.T) {
		redisContainer, cleanup := SetupRedisContainer(t, ctx)
		defer cleanup()

		repo := CreateTestRepository(t, redisContainer.Addr)
		defer repo.Close(ctx)

		wh := testWebhook("wh-upd", "dash-1", true)
		require.NoError(t, repo.StoreWebhook(ctx, wh))

		wh.URL = "https://example.com/hooks/changed"
		wh.Events = webhook.NewEventSet("*")
		wh.IsActive = false
		require.NoError(t, repo.UpdateWebhook(ctx, wh))

		retrieved, err := repo.GetWebhook(ctx, wh.ID)
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/hooks/changed", retrieved.URL)
		assert.False(t, retrieved.IsActive)
		assert.True(t, retrieved.Events.Contains(webhook.CategoryDeleted))

		assert.ErrorIs(t, repo.UpdateWebhook(ctx, testWebhook("missing", "dash-1", true)), webhook.ErrNotFound)
	})

	t.Run("delete removes hash, index entry and delivery history", func(t *testing.T) {
		redisContainer, cleanup := SetupRedisContainer(t, ctx)
		defer cleanup()

		repo := CreateTestRepository(t, redisContainer.Addr)
		defer repo.Close(ctx)

		wh := testWebhook("wh-del", "dash-1", true)
		require.NoError(t, repo.StoreWebhook(ctx, wh))
		require.NoError(t, repo.StoreDelivery(ctx, webhook.Delivery{
			ID:        "d-del",
			WebhookID: wh.ID,
			Event:     webhook.LinkClicked,
			Payload:   []byte(`{}`),
			Status:    webhook.Success,
			Attempts:  1,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}))

		require.NoError(t, repo.DeleteWebhook(ctx, wh.ID))

		_, err := repo.GetWebhook(ctx, wh.ID)
		assert.ErrorIs(t, err, webhook.ErrNotFound)
		_, err = repo.GetDelivery(ctx, "d-del")
		assert.ErrorIs(t, err, webhook.ErrNotFound)
		assert.False(t, KeyExists(t, redisContainer.Addr, "webhook:"+wh.ID))
		assert.False(t, KeyExists(t, redisContainer.Addr, "delivery:d-del"))

		all, err := repo.ListWebhooks(ctx, "dash-1")
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("touch last triggered", func(t *testing.T) {
		redisContainer, cleanup := SetupRedisContainer(t, ctx)
		defer cleanup()

		repo := CreateTestRepository(t, redisContainer.Addr)
		defer repo.Close(ctx)

		wh := testWebhook("wh-touch", "dash-1", true)
		require.NoError(t, repo.StoreWebhook(ctx, wh))
		require.NoError(t, repo.TouchLastTriggered(ctx, wh.ID))

		retrieved, err := repo.GetWebhook(ctx, wh.ID)
		require.NoError(t, err)
		assert.False(t, retrieved.LastTriggered.IsZero())
	})
}

func TestRepository_Deliveries_Integration(t *testing.T) {
	ctx := context.Background()

	t.Run("store, retrieve and update delivery", func(t *testing.T) {
		redisContainer, cleanup := SetupRedisContainer(t, ctx)
		defer cleanup()

		repo := CreateTestRepository(t, redisContainer.Addr)
		defer repo.Close(ctx)

		d := webhook.Delivery{
			ID:        GenerateID(t, "d"),
			WebhookID: "wh-1",
			Event:     webhook.LinkClicked,
			Payload:   []byte(`{"event":"link.clicked","dashboardId":"dash-1"}`),
			Status:    webhook.Pending,
			Attempts:  0,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		require.NoError(t, repo.StoreDelivery(ctx, d))

		retrieved, err := repo.GetDelivery(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, d.WebhookID, retrieved.WebhookID)
		assert.Equal(t, webhook.LinkClicked, retrieved.Event)
		assert.Equal(t, string(d.Payload), string(retrieved.Payload))
		assert.Equal(t, webhook.Pending, retrieved.Status)

		require.NoError(t, repo.UpdateDelivery(ctx, d.ID, webhook.Success, 2, "ok"))

		retrieved, err = repo.GetDelivery(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, webhook.Success, retrieved.Status)
		assert.Equal(t, 2, retrieved.Attempts)
		assert.Equal(t, "ok", retrieved.Response)
	})

	t.Run("list returns newest first and honors the limit", func(t *testing.T) {
		redisContainer, cleanup := SetupRedisContainer(t, ctx)
		defer cleanup()

		repo := CreateTestRepository(t, redisContainer.Addr)
		defer repo.Close(ctx)

		for _, id := range []string{"d-1", "d-2", "d-3"} {
			require.NoError(t, repo.StoreDelivery(ctx, webhook.Delivery{
				ID:        id,
				WebhookID: "wh-list",
				Event:     webhook.LinkCreated,
				Payload:   []byte(`{}`),
				Status:    webhook.Pending,
				CreatedAt: time.Now(),
				UpdatedAt: time.Now(),
			}))
		}

		deliveries, err := repo.ListDeliveries(ctx, "wh-list", 2)
		require.NoError(t, err)
		require.Len(t, deliveries, 2)
		assert.Equal(t, "d-3", deliveries[0].ID)
		assert.Equal(t, "d-2", deliveries[1].ID)
	})

	t.Run("status counters track transitions", func(t *testing.T) {
		redisContainer, cleanup := SetupRedisContainer(t, ctx)
		defer cleanup()

		repo := CreateTestRepository(t, redisContainer.Addr)
		defer repo.Close(ctx)

		for _, id := range []string{"d-a", "d-b"} {
			require.NoError(t, repo.StoreDelivery(ctx, webhook.Delivery{
				ID:        id,
				WebhookID: "wh-counts",
				Event:     webhook.LinkCreated,
				Payload:   []byte(`{}`),
				Status:    webhook.Pending,
				CreatedAt: time.Now(),
				UpdatedAt: time.Now(),
			}))
		}

		counts, err := repo.CountDeliveriesByStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), counts["pending"])

		require.NoError(t, repo.UpdateDelivery(ctx, "d-a", webhook.Success, 1, "ok"))
		require.NoError(t, repo.UpdateDelivery(ctx, "d-b", webhook.Failed, 3, "HTTP 500"))

		counts, err = repo.CountDeliveriesByStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), counts["pending"])
		assert.Equal(t, int64(1), counts["success"])
		assert.Equal(t, int64(1), counts["failed"])
	})
}
