package webhook

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/sleekyom/linkdash/webhook/signature"
)

/* Service represents the business logic layer for webhook subscriptions
 * Uses pointer semantics as it's an API, not data
 */

// TestFailedError is returned when the registration-time reachability
// check fails. Handlers map it to a 400-class response.
type TestFailedError struct {
	Result TestResult
}

func (e TestFailedError) Error() string {
	return fmt.Sprintf("webhook test failed: %s", e.Result.Message)
}

// UpdatePatch carries a partial webhook mutation. Nil fields are unchanged.
type UpdatePatch struct {
	URL      *string
	Events   []string
	IsActive *bool
}

// UseCase defines the business operations for webhook management
type UseCase interface {
	Register(ctx context.Context, dashboardID, targetURL string, events []string, generateSecret bool) (Webhook, error)
	Update(ctx context.Context, dashboardID, webhookID string, patch UpdatePatch) (Webhook, error)
	Delete(ctx context.Context, dashboardID, webhookID string) error
	List(ctx context.Context, dashboardID string) ([]Webhook, error)
	Deliveries(ctx context.Context, webhookID string, limit int) ([]Delivery, error)
}

type Service struct {
	Repo      Repository
	Deliverer *Deliverer
}

// NewService creates a new webhook service with dependency injection
func NewService(repo Repository, deliverer *Deliverer) *Service {
	return &Service{
		Repo:      repo,
		Deliverer: deliverer,
	}
}

/* Register validates and test-delivers before anything is persisted, so a
 * dead endpoint never becomes a silent dead subscription. The generated
 * secret is returned exactly once, on the Webhook it persists.
 */
func (s *Service) Register(ctx context.Context, dashboardID, targetURL string, events []string, generateSecret bool) (Webhook, error) {
	if err := validateURL(targetURL); err != nil {
		return Webhook{}, err
	}

	set := NewEventSet(events...)
	if err := set.Validate(); err != nil {
		return Webhook{}, fmt.Errorf("validating events: %w", err)
	}

	var secret string
	if generateSecret {
		var err error
		secret, err = signature.GenerateSecret()
		if err != nil {
			return Webhook{}, fmt.Errorf("generating secret: %w", err)
		}
	}

	if result := s.Deliverer.Test(ctx, targetURL, secret); !result.Success {
		return Webhook{}, TestFailedError{Result: result}
	}

	wh := Webhook{
		ID:          uuid.New().String(),
		DashboardID: dashboardID,
		URL:         targetURL,
		Events:      set,
		Secret:      secret,
		IsActive:    true,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	if err := s.Repo.StoreWebhook(ctx, wh); err != nil {
		return Webhook{}, fmt.Errorf("storing webhook: %w", err)
	}

	return wh, nil
}

// Update applies a partial mutation to a webhook owned by the dashboard
func (s *Service) Update(ctx context.Context, dashboardID, webhookID string, patch UpdatePatch) (Webhook, error) {
	wh, err := s.owned(ctx, dashboardID, webhookID)
	if err != nil {
		return Webhook{}, err
	}

	if patch.URL != nil {
		if err := validateURL(*patch.URL); err != nil {
			return Webhook{}, err
		}
		wh.URL = *patch.URL
	}
	if patch.Events != nil {
		set := NewEventSet(patch.Events...)
		if err := set.Validate(); err != nil {
			return Webhook{}, fmt.Errorf("validating events: %w", err)
		}
		wh.Events = set
	}
	if patch.IsActive != nil {
		wh.IsActive = *patch.IsActive
	}
	wh.UpdatedAt = time.Now()

	if err := s.Repo.UpdateWebhook(ctx, wh); err != nil {
		return Webhook{}, fmt.Errorf("updating webhook: %w", err)
	}
	return wh, nil
}

// Delete removes the webhook and, with it, its delivery history
func (s *Service) Delete(ctx context.Context, dashboardID, webhookID string) error {
	if _, err := s.owned(ctx, dashboardID, webhookID); err != nil {
		return err
	}
	if err := s.Repo.DeleteWebhook(ctx, webhookID); err != nil {
		return fmt.Errorf("deleting webhook: %w", err)
	}
	return nil
}

// List returns every webhook owned by a dashboard
func (s *Service) List(ctx context.Context, dashboardID string) ([]Webhook, error) {
	webhooks, err := s.Repo.ListWebhooks(ctx, dashboardID)
	if err != nil {
		return nil, fmt.Errorf("listing webhooks: %w", err)
	}
	return webhooks, nil
}

// Deliveries returns the most recent delivery records for a webhook
func (s *Service) Deliveries(ctx context.Context, webhookID string, limit int) ([]Delivery, error) {
	deliveries, err := s.Repo.ListDeliveries(ctx, webhookID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing deliveries: %w", err)
	}
	return deliveries, nil
}

// owned fetches a webhook and verifies it belongs to the dashboard.
// Ownership mismatch is reported as ErrNotFound, not as a permission error,
// so IDs are not probeable across dashboards.
func (s *Service) owned(ctx context.Context, dashboardID, webhookID string) (Webhook, error) {
	wh, err := s.Repo.GetWebhook(ctx, webhookID)
	if err != nil {
		return Webhook{}, fmt.Errorf("getting webhook: %w", err)
	}
	if wh.DashboardID != dashboardID {
		return Webhook{}, fmt.Errorf("getting webhook: %w", ErrNotFound)
	}
	return wh, nil
}

// validateURL restricts delivery targets to http and https
func validateURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parsing url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("url host is required")
	}
	return nil
}
