package approval

import (
	"encoding/json"
	"time"
)

// State describes the lifecycle of a change descriptor. Approved and
// rejected are terminal; decided descriptors are removed from the store
// rather than archived.
type State string

const (
	StatePending  State = "pending"
	StateApproved State = "approved"
	StateRejected State = "rejected"
)

// Change is a queued, replayable representation of one proposed mutation to
// a record.
type Change struct {
	// ID is the globally unique descriptor identifier, the store primary key.
	ID string `json:"id"`

	// TargetID identifies the record this change applies to.
	TargetID string `json:"targetId"`

	// TargetType carries the canonical record type name so the snapshot
	// decodes back into a live instance of the correct concrete type.
	TargetType string `json:"targetType"`

	// ObjectChanges maps field name to the proposed value for every
	// non-excluded dirty field at capture time. Never empty.
	ObjectChanges map[string]interface{} `json:"objectChanges"`

	// Snapshot is the complete serialized record as it would look after the
	// proposed mutation, excluded fields included.
	Snapshot json.RawMessage `json:"snapshot"`

	// State is pending for every stored descriptor.
	State State `json:"state"`

	// CreatedAt orders descriptors of the same target (insertion order).
	CreatedAt time.Time `json:"createdAt"`
}
