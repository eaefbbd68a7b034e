package webhook

import (
	"fmt"
	"strings"
)

/* Event identifies what happened on a dashboard
 * Kinds are fixed strings; subscriptions store them comma-joined
 */
type Event string

const (
	LinkCreated      Event = "link.created"
	LinkUpdated      Event = "link.updated"
	LinkDeleted      Event = "link.deleted"
	LinkClicked      Event = "link.clicked"
	DashboardUpdated Event = "dashboard.updated"
	CategoryCreated  Event = "category.created"
	CategoryDeleted  Event = "category.deleted"

	// Wildcard subscribes a webhook to every event kind
	Wildcard = "*"
)

// Events lists all known event kinds
func Events() []Event {
	return []Event{
		LinkCreated,
		LinkUpdated,
		LinkDeleted,
		LinkClicked,
		DashboardUpdated,
		CategoryCreated,
		CategoryDeleted,
	}
}

// String returns the string representation of the event
func (e Event) String() string {
	return string(e)
}

// Validate checks if the event is a known kind
func (e Event) Validate() error {
	for _, known := range Events() {
		if e == known {
			return nil
		}
	}
	return fmt.Errorf("unknown event: %s", e)
}

/* EventSet is the parsed, unordered subscription filter of a webhook
 * Membership is exact string match or the wildcard marker
 */
type EventSet map[string]struct{}

// ParseEvents parses a comma-joined subscription string into an EventSet
func ParseEvents(joined string) EventSet {
	set := make(EventSet)
	for _, raw := range strings.Split(joined, ",") {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		set[name] = struct{}{}
	}
	return set
}

// NewEventSet builds an EventSet from individual event names
func NewEventSet(names ...string) EventSet {
	set := make(EventSet, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		set[name] = struct{}{}
	}
	return set
}

// Contains reports whether the set subscribes to the given event,
// either exactly or via the wildcard marker
func (s EventSet) Contains(event Event) bool {
	if _, ok := s[Wildcard]; ok {
		return true
	}
	_, ok := s[string(event)]
	return ok
}

// Validate checks that the set is non-empty and every entry is a known
// event kind or the wildcard marker
func (s EventSet) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("at least one event is required")
	}
	for name := range s {
		if name == Wildcard {
			continue
		}
		if err := Event(name).Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Join serializes the set to the comma-joined storage format.
// Order is normalized so the output is stable.
func (s EventSet) Join() string {
	names := make([]string, 0, len(s))
	if _, ok := s[Wildcard]; ok {
		names = append(names, Wildcard)
	}
	for _, known := range Events() {
		if _, ok := s[string(known)]; ok {
			names = append(names, string(known))
		}
	}
	return strings.Join(names, ",")
}
