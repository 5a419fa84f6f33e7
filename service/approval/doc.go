// Package approval defines the change descriptor - the queued, replayable
// unit of work produced when a record mutation is diverted for review - and
// the store contract that queues descriptors per target record.
package approval
