// Package events carries the domain events emitted on every committed key
// transition. Keep the event transport-agnostic so sinks can fan out; the
// Kafka publisher and the in-memory test publisher both consume it as-is.
package events

import "time"

// Event describes one committed state transition. Exactly one is published
// per commit; delivery is at-least-once, so consumers deduplicate on
// (KeyID, NewState).
type Event struct {
	Name      string    `json:"name"`
	KeyID     string    `json:"key_id"`
	KeyValue  string    `json:"key_value"`
	OldState  string    `json:"old_state"`
	NewState  string    `json:"new_state"`
	ClaimID   string    `json:"claim_id,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
