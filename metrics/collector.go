package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/sleekyom/linkdash/webhook"
)

// RepositoryCollector implements the Collector interface over the
// delivery repository, so the same metrics work for Redis and in-memory
// storage alike.
type RepositoryCollector struct {
	deliveries webhook.DeliveryReader
}

// NewRepositoryCollector creates a repository-backed metrics collector
func NewRepositoryCollector(deliveries webhook.DeliveryReader) *RepositoryCollector {
	return &RepositoryCollector{
		deliveries: deliveries,
	}
}

// Collect gathers all metrics from the repository
func (c *RepositoryCollector) Collect(ctx context.Context) (Metrics, error) {
	statusCounts, err := c.GetStatusCounts(ctx)
	if err != nil {
		return Metrics{}, fmt.Errorf("getting status counts: %w", err)
	}

	return Metrics{
		StatusCounts: statusCounts,
		Timestamp:    time.Now(),
	}, nil
}

// GetStatusCounts returns the count of delivery records by status
func (c *RepositoryCollector) GetStatusCounts(ctx context.Context) (map[string]int64, error) {
	counts, err := c.deliveries.CountDeliveriesByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting deliveries: %w", err)
	}
	return counts, nil
}
