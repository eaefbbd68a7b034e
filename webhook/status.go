package webhook

import "fmt"

/* Status represents the current state of a delivery attempt-chain
 * Lifecycle: Pending -> Success or Pending -> Failed
 * Terminal states are never left again
 */
type Status int

const (
	Pending Status = iota + 1
	Success
	Failed
)

// String returns the string representation of the status
func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Success:
		return "success"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// NewStatus creates a Status from a string
func NewStatus(str string) Status {
	switch str {
	case "pending":
		return Pending
	case "success":
		return Success
	case "failed":
		return Failed
	default:
		return Pending
	}
}

// Validate checks if the status is valid
func (s Status) Validate() error {
	if s < Pending || s > Failed {
		return fmt.Errorf("invalid status: %d", s)
	}
	return nil
}

// IsFinal returns true if the status is a terminal state
func (s Status) IsFinal() bool {
	return s == Success || s == Failed
}
