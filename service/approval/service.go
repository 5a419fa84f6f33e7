package approval

import (
	"context"
)

// Store persists queued change descriptors. Implementations must keep
// HasPending consistent with ListPending at the same instant and make every
// remove-style operation idempotent.
type Store interface {
	// Append persists a new pending descriptor. Storage errors propagate;
	// the append never fails silently.
	Append(ctx context.Context, change *Change) error

	// ListPending returns the target's queued descriptors ascending by
	// CreatedAt. An empty queue yields an empty slice, not an error.
	ListPending(ctx context.Context, targetID string) ([]*Change, error)

	// List returns every queued descriptor across all targets, ascending by
	// CreatedAt.
	List(ctx context.Context) ([]*Change, error)

	// Lookup returns a descriptor by ID, or nil when it no longer exists.
	Lookup(ctx context.Context, id string) (*Change, error)

	// Remove deletes one descriptor; removing an absent ID is a no-op.
	Remove(ctx context.Context, id string) error

	// RemoveAll deletes every descriptor queued for the target.
	RemoveAll(ctx context.Context, targetID string) error

	// HasPending reports whether the target has queued descriptors.
	HasPending(ctx context.Context, targetID string) (bool, error)
}
