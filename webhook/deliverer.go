package webhook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sleekyom/linkdash/webhook/payload"
	"github.com/sleekyom/linkdash/webhook/signature"
)

const (
	// AttemptTimeout bounds each individual HTTP delivery attempt
	AttemptTimeout = 10 * time.Second

	// UserAgent identifies the sender on every outbound request
	UserAgent = "LinkDash-Webhook/1.0"
)

// DeliveryStore is the slice of the repository a delivery chain mutates
type DeliveryStore interface {
	DeliveryReader
	DeliveryWriter
}

// TestResult is the outcome of a registration-time reachability check
type TestResult struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode,omitempty"`
}

/* Deliverer performs HTTP delivery attempts and drives the retry loop
 * Uses pointer semantics as it's an API, not data
 */
type Deliverer struct {
	store  DeliveryStore
	client *http.Client
	logger zerolog.Logger

	// sleep is replaceable in tests to measure backoff without waiting
	sleep func(ctx context.Context, d time.Duration) error
}

// NewDeliverer creates a deliverer with a pooled HTTP client.
// The per-attempt timeout is applied via request contexts, not the client,
// so a single client can be shared by every delivery chain.
func NewDeliverer(store DeliveryStore, logger zerolog.Logger) *Deliverer {
	return &Deliverer{
		store: store,
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: logger,
		sleep:  sleepCtx,
	}
}

/* Deliver runs one delivery chain to completion: up to MaxAttempts POSTs
 * with exponential backoff between attempts (2s, 4s, 8s). The record is
 * re-fetched by ID before each attempt so concurrent inspection between
 * attempts sees current state; if it was deleted mid-retry the chain
 * aborts silently.
 */
func (d *Deliverer) Deliver(ctx context.Context, deliveryID, url string, body []byte, secret string) {
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		if attempt > 1 {
			// Backoff after attempt N is 2^N seconds
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			if err := d.sleep(ctx, backoff); err != nil {
				return
			}
		}

		if _, err := d.store.GetDelivery(ctx, deliveryID); err != nil {
			if !errors.Is(err, ErrNotFound) {
				d.logger.Error().Err(err).Str("delivery_id", deliveryID).Msg("fetching delivery record")
			}
			return
		}

		statusCode, respBody, err := d.attempt(ctx, url, body, secret)
		if err == nil {
			if err := d.store.UpdateDelivery(ctx, deliveryID, Success, attempt, Truncate(respBody)); err != nil && !errors.Is(err, ErrNotFound) {
				d.logger.Error().Err(err).Str("delivery_id", deliveryID).Msg("recording delivery success")
			}
			return
		}

		d.logger.Warn().
			Err(err).
			Str("delivery_id", deliveryID).
			Int("attempt", attempt).
			Int("status_code", statusCode).
			Msg("webhook delivery attempt failed")

		if attempt == MaxAttempts {
			if err := d.store.UpdateDelivery(ctx, deliveryID, Failed, attempt, Truncate(err.Error())); err != nil && !errors.Is(err, ErrNotFound) {
				d.logger.Error().Err(err).Str("delivery_id", deliveryID).Msg("recording delivery failure")
			}
		}
	}
}

/* Test performs a synchronous single-shot delivery of the sentinel payload
 * Used before persisting a new webhook so dead endpoints are rejected at
 * registration time. No retry, no delivery record.
 */
func (d *Deliverer) Test(ctx context.Context, url, secret string) TestResult {
	body, err := payload.NewTest().Bytes()
	if err != nil {
		return TestResult{Success: false, Message: err.Error()}
	}

	statusCode, _, err := d.attempt(ctx, url, body, secret)
	if err != nil {
		return TestResult{
			Success:    false,
			Message:    err.Error(),
			StatusCode: statusCode,
		}
	}
	return TestResult{
		Success:    true,
		Message:    "Webhook test successful",
		StatusCode: statusCode,
	}
}

// attempt issues a single signed POST and classifies the outcome.
// A nil error means an HTTP status in the success range.
func (d *Deliverer) attempt(ctx context.Context, url string, body []byte, secret string) (int, string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, AttemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, "", fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	if secret != "" {
		req.Header.Set(signature.Header, signature.Sign(body, secret))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	// Read enough for the stored (truncated) response; cap to avoid
	// unbounded memory on hostile endpoints
	respBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	respBody := string(respBytes)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, respBody, fmt.Errorf("HTTP %d: %s", resp.StatusCode, respBody)
	}
	return resp.StatusCode, respBody, nil
}

// sleepCtx waits for the duration unless the context is cancelled first
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
