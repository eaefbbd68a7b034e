package metrics

import (
	"context"
	"time"
)

// Metrics represents the current state of the delivery subsystem.
type Metrics struct {
	// StatusCounts maps delivery status name to count of records in that status
	StatusCounts map[string]int64 `json:"status_counts"`

	// Timestamp when metrics were collected
	Timestamp time.Time `json:"timestamp"`
}

// Collector defines the interface for collecting metrics from the
// delivery subsystem.
type Collector interface {
	// Collect gathers current metrics from the system
	Collect(ctx context.Context) (Metrics, error)

	// GetStatusCounts returns the count of delivery records by status
	GetStatusCounts(ctx context.Context) (map[string]int64, error)
}
