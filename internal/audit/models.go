// Package audit publishes operational audit events for the generation and
// credits surfaces. Events are best-effort: a sink failure is logged, never
// allowed to fail the business operation that emitted it.
package audit

import (
	"context"
	"time"
)

// EventType names an auditable action.
type EventType string

const (
	EventGenerationSucceeded EventType = "generation_succeeded"
	EventGenerationFailed    EventType = "generation_failed"
	EventCreditsAdded        EventType = "credits_added"
	EventCreditsRefunded     EventType = "credits_refunded"
	// EventRefundFailed marks a ledger left inconsistent by a failed
	// compensating credit. Operators alert on this one.
	EventRefundFailed EventType = "refund_failed"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so sinks can fan out.
type Event struct {
	Type      EventType         `json:"type"`
	AccountID string            `json:"account_id"`
	Details   map[string]string `json:"details,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Details builds a detail map from alternating key/value pairs. A trailing
// key without a value is dropped.
func Details(kv ...string) map[string]string {
	if len(kv) < 2 {
		return nil
	}
	m := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i]] = kv[i+1]
	}
	return m
}

// Publisher emits audit events.
type Publisher interface {
	Emit(ctx context.Context, event Event)
}

// Sink receives events from the async publisher.
type Sink interface {
	Write(ctx context.Context, event Event) error
}
