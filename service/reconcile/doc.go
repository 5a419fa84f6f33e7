// Package reconcile approves or rejects queued change descriptors, replaying
// approved snapshots into the primary record store.
package reconcile
