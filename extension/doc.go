// Package extension maintains the registry of record types governed by the
// approval engine. Snapshot decoding resolves concrete Go types through this
// registry.
package extension
