// Package event streams capture and decision notifications so that hosts
// can audit or mirror the approval queue without polling the store.
package event
