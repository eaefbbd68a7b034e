package webhook

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sleekyom/linkdash/webhook/payload"
)

// Recorder observes dispatch activity for metrics.
// Implementations must not block.
type Recorder interface {
	DeliveryDispatched(event string)
}

/* Dispatcher resolves the webhooks subscribed to an event and fans out
 * delivery chains. Trigger is fire-and-forget: the caller's request path
 * is never blocked and never sees an error from here.
 */
type Dispatcher struct {
	repo      Repository
	deliverer *Deliverer
	logger    zerolog.Logger
	recorder  Recorder

	wg sync.WaitGroup
}

// NewDispatcher creates a dispatcher. recorder may be nil.
func NewDispatcher(repo Repository, deliverer *Deliverer, logger zerolog.Logger, recorder Recorder) *Dispatcher {
	return &Dispatcher{
		repo:      repo,
		deliverer: deliverer,
		logger:    logger,
		recorder:  recorder,
	}
}

/* Trigger notifies every active webhook of dashboardID subscribed to event.
 * Returns immediately; resolution and all deliveries run detached from the
 * triggering request, on a background context.
 */
func (d *Dispatcher) Trigger(dashboardID string, event Event, data any) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.dispatch(context.Background(), dashboardID, event, data)
	}()
}

// Wait blocks until all in-flight dispatches and deliveries finish.
// Used by tests and best-effort at shutdown; there is no cancellation
// path for a chain once started.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) dispatch(ctx context.Context, dashboardID string, event Event, data any) {
	webhooks, err := d.repo.ActiveWebhooks(ctx, dashboardID)
	if err != nil {
		// Dispatch is best-effort: log and drop, never raise to the caller
		d.logger.Error().Err(err).Str("dashboard_id", dashboardID).Msg("resolving webhooks")
		return
	}

	for _, wh := range webhooks {
		if !wh.Subscribed(event) {
			continue
		}

		body, err := payload.New(event.String(), dashboardID, data)
		if err != nil {
			d.logger.Error().Err(err).Str("webhook_id", wh.ID).Msg("building payload")
			continue
		}
		bodyBytes, err := body.Bytes()
		if err != nil {
			d.logger.Error().Err(err).Str("webhook_id", wh.ID).Msg("encoding payload")
			continue
		}

		delivery := Delivery{
			ID:        uuid.New().String(),
			WebhookID: wh.ID,
			Event:     event,
			Payload:   bodyBytes,
			Status:    Pending,
			Attempts:  0,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		if err := d.repo.StoreDelivery(ctx, delivery); err != nil {
			d.logger.Error().Err(err).Str("webhook_id", wh.ID).Msg("creating delivery record")
			continue
		}

		if d.recorder != nil {
			d.recorder.DeliveryDispatched(event.String())
		}

		d.wg.Add(1)
		go func(wh Webhook, deliveryID string, body []byte) {
			defer d.wg.Done()
			d.deliverer.Deliver(ctx, deliveryID, wh.URL, body, wh.Secret)
		}(wh, delivery.ID, bodyBytes)

		// Best-effort: records "we tried", not "we succeeded"
		if err := d.repo.TouchLastTriggered(ctx, wh.ID); err != nil {
			d.logger.Warn().Err(err).Str("webhook_id", wh.ID).Msg("updating last triggered")
		}
	}
}
