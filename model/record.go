package model

import "context"

// Record represents an entity under approval control. The engine never
// creates or destroys records; it only reads and replays their field values.
type Record interface {
	// ID returns the stable identity of the record within its store.
	ID() string
}

// ChangeTracker is an optional capability a Record may implement to report
// in-memory modifications that have not been persisted yet. Keys use the
// record's JSON field names, values carry the proposed (new) field values.
//
// Records that do not implement ChangeTracker are diffed against their
// stored copy instead.
type ChangeTracker interface {
	DirtyFields() map[string]interface{}
}

// Store persists live records. It is supplied by the host application; the
// engine commits to it directly on the approved path and replays snapshots
// into it during reconciliation.
type Store interface {
	// Save commits the record full state, overwriting any stored copy.
	Save(ctx context.Context, record Record) error

	// Load returns the stored copy of a record or dao.ErrNotFound when the
	// identity has never been committed.
	Load(ctx context.Context, id string) (Record, error)
}
