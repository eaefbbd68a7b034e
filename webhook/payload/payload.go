package payload

import (
	"encoding/json"
	"fmt"
	"time"
)

/* Payload is the JSON body POSTed to a webhook endpoint
 * Shape: {event, timestamp (ISO-8601), dashboardId, data}
 */
type Payload struct {
	Event       string          `json:"event"`
	Timestamp   time.Time       `json:"timestamp"`
	DashboardID string          `json:"dashboardId"`
	Data        json.RawMessage `json:"data"`
}

// MarshalJSON formats the timestamp as ISO-8601 (RFC 3339) in UTC
func (p Payload) MarshalJSON() ([]byte, error) {
	type Alias Payload
	return json.Marshal(&struct {
		Timestamp string `json:"timestamp"`
		*Alias
	}{
		Timestamp: p.Timestamp.UTC().Format(time.RFC3339),
		Alias:     (*Alias)(&p),
	})
}

// UnmarshalJSON parses the JSON-encoded data and stores the result
func (p *Payload) UnmarshalJSON(data []byte) error {
	type Alias Payload
	aux := &struct {
		Timestamp string `json:"timestamp"`
		*Alias
	}{
		Alias: (*Alias)(p),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return fmt.Errorf("unmarshaling payload: %w", err)
	}
	timestamp, err := time.Parse(time.RFC3339, aux.Timestamp)
	if err != nil {
		return fmt.Errorf("parsing timestamp: %w", err)
	}
	p.Timestamp = timestamp
	return nil
}

// New creates a Payload for the given event, stamped with the current time
func New(event, dashboardID string, data any) (Payload, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return Payload{}, fmt.Errorf("marshaling data: %w", err)
	}
	return Payload{
		Event:       event,
		Timestamp:   time.Now().UTC(),
		DashboardID: dashboardID,
		Data:        dataBytes,
	}, nil
}

/* NewTest builds the sentinel payload sent by the registration-time
 * reachability check. Receivers can recognize it by data.test=true.
 */
func NewTest() Payload {
	data, _ := json.Marshal(map[string]any{
		"test":    true,
		"message": "This is a test webhook delivery",
	})
	return Payload{
		Event:       "link.clicked",
		Timestamp:   time.Now().UTC(),
		DashboardID: "test",
		Data:        data,
	}
}

// Bytes returns the JSON-encoded payload as bytes
// The returned bytes are minified (no extra whitespace)
func (p Payload) Bytes() ([]byte, error) {
	return json.Marshal(p)
}
