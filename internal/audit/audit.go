// Package audit captures the append-only trail of matching and delivery
// actions. Domain services emit fire-and-forget; sinks fan out to memory (for
// tests and single-node setups) or Kafka.
package audit

import (
	"context"
	"time"
)

// Action labels what happened. One constant per auditable state change.
type Action string

const (
	ActionDonationCreated    Action = "donation.created"
	ActionDonationCancelled  Action = "donation.cancelled"
	ActionProposalEmitted    Action = "match.proposal_emitted"
	ActionProposalRejected   Action = "match.proposal_rejected"
	ActionMatchCommitted     Action = "match.committed"
	ActionDeliveryTransition Action = "delivery.transitioned"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so sinks can fan out.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor"`
	Action    Action    `json:"action"`
	Entity    string    `json:"entity"`
	EntityID  string    `json:"entity_id"`
	Detail    string    `json:"detail,omitempty"`
}

// Publisher is the sink interface services emit into.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}
