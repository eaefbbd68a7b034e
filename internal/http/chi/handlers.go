package chi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"
	"github.com/sleekyom/linkdash/ratelimit"
	"github.com/sleekyom/linkdash/webhook"
)

// Dispatcher is the fire-and-forget trigger surface used by the events
// endpoint; the full dispatcher type lives in the webhook package
type Dispatcher interface {
	Trigger(dashboardID string, event webhook.Event, data any)
}

// Handlers sets up the webhook API routes
func Handlers(ctx context.Context, webhookService webhook.UseCase, dispatcher Dispatcher, limiter *ratelimit.Limiter, policies ratelimit.Policies, metricsHandler http.Handler) *chi.Mux {
	logger := httplog.NewLogger("linkdash-webhooks", httplog.Options{
		JSON: true,
	})

	r := chi.NewRouter()
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Route("/dashboards/{dashboard_id}", func(r chi.Router) {
			// Subscription management
			r.Group(func(r chi.Router) {
				r.Use(ratelimit.Middleware(limiter, policies.Moderate))
				r.Get("/webhooks", listWebhooks(webhookService).ServeHTTP)
				r.Post("/webhooks", registerWebhook(webhookService).ServeHTTP)
				r.Put("/webhooks/{webhook_id}", updateWebhook(webhookService).ServeHTTP)
				r.Delete("/webhooks/{webhook_id}", deleteWebhook(webhookService).ServeHTTP)
			})

			// Event ingestion from the CRUD application, high volume
			r.Group(func(r chi.Router) {
				r.Use(ratelimit.Middleware(limiter, policies.Tracking))
				r.Post("/events", triggerEvent(dispatcher).ServeHTTP)
			})
		})

		// Delivery history, expensive to assemble
		r.Group(func(r chi.Router) {
			r.Use(ratelimit.Middleware(limiter, policies.Strict))
			r.Get("/webhooks/{webhook_id}/deliveries", listDeliveries(webhookService).ServeHTTP)
		})
	})

	return r
}
