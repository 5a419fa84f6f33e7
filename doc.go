// Package manzoori is an approval-gated mutation engine. It sits between
// "a caller wants to persist a change to a record" and "the change is
// committed": every mutation of a governed, already persisted record is
// captured as a pending, replayable change descriptor instead of being
// applied, and commits only once a reviewer approves it.
//
// Hosts register a rule per record type (an approval predicate plus fields
// exempt from capture), route saves through Service.Save, and decide queued
// descriptors with Approve/Reject or the bulk variants. Approving replays
// the descriptor's full snapshot into the record store, so processing a
// queue in order always converges on the last proposed state.
package manzoori
