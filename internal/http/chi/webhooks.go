package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sleekyom/linkdash/webhook"
)

/* HTTP layer DTOs for the webhook API
 * Separate from domain entities to avoid leaking internal structure.
 * The signing secret appears only in the registration response.
 */

// webhookResponse represents a webhook subscription in the API
type webhookResponse struct {
	ID            string   `json:"id"`
	DashboardID   string   `json:"dashboard_id"`
	URL           string   `json:"url"`
	Events        []string `json:"events"`
	IsActive      bool     `json:"is_active"`
	LastTriggered *string  `json:"last_triggered"`
	CreatedAt     string   `json:"created_at"`
}

// registerResponse is the one place the generated secret is revealed
type registerResponse struct {
	webhookResponse
	Secret string `json:"secret,omitempty"`
}

// deliveryResponse represents a delivery record in the API
type deliveryResponse struct {
	ID        string `json:"id"`
	WebhookID string `json:"webhook_id"`
	Event     string `json:"event"`
	Status    string `json:"status"`
	Attempts  int    `json:"attempts"`
	Response  string `json:"response"`
	CreatedAt string `json:"created_at"`
}

type registerRequest struct {
	URL            string   `json:"url"`
	Events         []string `json:"events"`
	GenerateSecret bool     `json:"generate_secret"`
}

type updateRequest struct {
	URL      *string  `json:"url"`
	Events   []string `json:"events"`
	IsActive *bool    `json:"is_active"`
}

type triggerRequest struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// listWebhooks handles GET /v1/dashboards/{dashboard_id}/webhooks
func listWebhooks(service webhook.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dashboardID := chi.URLParam(r, "dashboard_id")

		webhooks, err := service.List(r.Context(), dashboardID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Internal server error", "")
			return
		}

		responses := make([]webhookResponse, 0, len(webhooks))
		for _, wh := range webhooks {
			responses = append(responses, toWebhookResponse(wh))
		}
		writeJSON(w, http.StatusOK, responses)
	})
}

/* registerWebhook handles POST /v1/dashboards/{dashboard_id}/webhooks
 * The subscription is test-delivered before anything persists; a failed
 * test surfaces as 400 and no record is created.
 */
func registerWebhook(service webhook.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dashboardID := chi.URLParam(r, "dashboard_id")

		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
			return
		}
		if req.URL == "" {
			writeError(w, http.StatusBadRequest, "URL is required", "")
			return
		}
		if len(req.Events) == 0 {
			writeError(w, http.StatusBadRequest, "At least one event is required", "")
			return
		}

		wh, err := service.Register(r.Context(), dashboardID, req.URL, req.Events, req.GenerateSecret)
		if err != nil {
			var testErr webhook.TestFailedError
			if errors.As(err, &testErr) {
				writeJSON(w, http.StatusBadRequest, errorResponse{
					Error:   "Webhook test failed",
					Message: testErr.Result.Message,
				})
				return
			}
			writeError(w, http.StatusBadRequest, err.Error(), "")
			return
		}

		writeJSON(w, http.StatusCreated, registerResponse{
			webhookResponse: toWebhookResponse(wh),
			Secret:          wh.Secret,
		})
	})
}

// updateWebhook handles PUT /v1/dashboards/{dashboard_id}/webhooks/{webhook_id}
func updateWebhook(service webhook.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dashboardID := chi.URLParam(r, "dashboard_id")
		webhookID := chi.URLParam(r, "webhook_id")

		var req updateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
			return
		}

		wh, err := service.Update(r.Context(), dashboardID, webhookID, webhook.UpdatePatch{
			URL:      req.URL,
			Events:   req.Events,
			IsActive: req.IsActive,
		})
		if err != nil {
			if errors.Is(err, webhook.ErrNotFound) {
				writeError(w, http.StatusNotFound, "Webhook not found", "")
				return
			}
			writeError(w, http.StatusBadRequest, err.Error(), "")
			return
		}

		writeJSON(w, http.StatusOK, toWebhookResponse(wh))
	})
}

// deleteWebhook handles DELETE /v1/dashboards/{dashboard_id}/webhooks/{webhook_id}
func deleteWebhook(service webhook.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dashboardID := chi.URLParam(r, "dashboard_id")
		webhookID := chi.URLParam(r, "webhook_id")

		if err := service.Delete(r.Context(), dashboardID, webhookID); err != nil {
			if errors.Is(err, webhook.ErrNotFound) {
				writeError(w, http.StatusNotFound, "Webhook not found", "")
				return
			}
			writeError(w, http.StatusInternalServerError, "Internal server error", "")
			return
		}

		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	})
}

// listDeliveries handles GET /v1/webhooks/{webhook_id}/deliveries
func listDeliveries(service webhook.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		webhookID := chi.URLParam(r, "webhook_id")

		deliveries, err := service.Deliveries(r.Context(), webhookID, 50)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Internal server error", "")
			return
		}

		responses := make([]deliveryResponse, 0, len(deliveries))
		for _, d := range deliveries {
			responses = append(responses, deliveryResponse{
				ID:        d.ID,
				WebhookID: d.WebhookID,
				Event:     d.Event.String(),
				Status:    d.Status.String(),
				Attempts:  d.Attempts,
				Response:  d.Response,
				CreatedAt: d.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
		writeJSON(w, http.StatusOK, responses)
	})
}

/* triggerEvent handles POST /v1/dashboards/{dashboard_id}/events
 * Called by the CRUD application after a successful mutation. Responds
 * 202 immediately; deliveries run detached and their outcome is only
 * visible through delivery history.
 */
func triggerEvent(dispatcher Dispatcher) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dashboardID := chi.URLParam(r, "dashboard_id")

		var req triggerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
			return
		}

		event := webhook.Event(req.Event)
		if err := event.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), "")
			return
		}

		data := req.Data
		if data == nil {
			data = json.RawMessage(`{}`)
		}
		dispatcher.Trigger(dashboardID, event, data)

		writeJSON(w, http.StatusAccepted, map[string]bool{"accepted": true})
	})
}

// Helpers

func toWebhookResponse(wh webhook.Webhook) webhookResponse {
	var lastTriggered *string
	if !wh.LastTriggered.IsZero() {
		v := wh.LastTriggered.UTC().Format(time.RFC3339)
		lastTriggered = &v
	}
	return webhookResponse{
		ID:            wh.ID,
		DashboardID:   wh.DashboardID,
		URL:           wh.URL,
		Events:        eventNames(wh.Events),
		IsActive:      wh.IsActive,
		LastTriggered: lastTriggered,
		CreatedAt:     wh.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// eventNames returns the set in the same normalized order used for storage
func eventNames(set webhook.EventSet) []string {
	joined := set.Join()
	if joined == "" {
		return []string{}
	}
	return strings.Split(joined, ",")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errMsg, message string) {
	writeJSON(w, status, errorResponse{Error: errMsg, Message: message})
}
