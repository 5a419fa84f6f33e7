package reconcile

import (
	"context"
	"fmt"

	"github.com/shahfaizanali/manzoori/model"
	"github.com/shahfaizanali/manzoori/service/approval"
	"github.com/shahfaizanali/manzoori/service/dao"
	"github.com/shahfaizanali/manzoori/service/event"
	"github.com/shahfaizanali/manzoori/tracing"
)

// Service decides queued change descriptors: approve replays the snapshot
// into the primary record store, reject discards the descriptor without
// touching persisted state.
type Service struct {
	records model.Store
	changes approval.Store
	codec   *approval.Codec
	events  *event.Queue
}

// New creates a reconciliation service.
func New(records model.Store, changes approval.Store, codec *approval.Codec, events *event.Queue) *Service {
	return &Service{
		records: records,
		changes: changes,
		codec:   codec,
		events:  events,
	}
}

// Approve deserializes the descriptor snapshot into a live record, commits
// that full state to the record store and removes the descriptor. The
// snapshot wins over any state written outside the engine since capture.
// Approving an already decided descriptor is a no-op; when the commit fails
// the descriptor stays pending so the caller can retry.
func (s *Service) Approve(ctx context.Context, change *approval.Change) (err error) {
	if change == nil {
		return dao.ErrNilEntity
	}
	ctx, span := tracing.StartSpan(ctx, "manzoori.approve")
	defer func() { tracing.EndSpan(span, err) }()
	span.WithAttributes(map[string]string{"change.id": change.ID, "record.id": change.TargetID})

	current, err := s.changes.Lookup(ctx, change.ID)
	if err != nil {
		return err
	}
	if current == nil { // already decided
		return nil
	}
	record, err := s.codec.Decode(current)
	if err != nil {
		return fmt.Errorf("failed to approve change %v: %w", change.ID, err)
	}
	if err = s.records.Save(ctx, record); err != nil {
		return fmt.Errorf("failed to commit change %v for %v: %w", change.ID, change.TargetID, err)
	}
	if err = s.changes.Remove(ctx, change.ID); err != nil {
		return fmt.Errorf("failed to dequeue change %v: %w", change.ID, err)
	}
	s.publish(ctx, event.TopicChangeApproved, current, approval.StateApproved)
	return nil
}

// Reject removes the descriptor from the queue without touching the
// persisted record; the proposed change is discarded. Rejecting an already
// decided descriptor is a no-op.
func (s *Service) Reject(ctx context.Context, change *approval.Change) (err error) {
	if change == nil {
		return dao.ErrNilEntity
	}
	ctx, span := tracing.StartSpan(ctx, "manzoori.reject")
	defer func() { tracing.EndSpan(span, err) }()
	span.WithAttributes(map[string]string{"change.id": change.ID, "record.id": change.TargetID})

	current, err := s.changes.Lookup(ctx, change.ID)
	if err != nil {
		return err
	}
	if current == nil {
		return nil
	}
	if err = s.changes.Remove(ctx, change.ID); err != nil {
		return fmt.Errorf("failed to dequeue change %v: %w", change.ID, err)
	}
	s.publish(ctx, event.TopicChangeRejected, current, approval.StateRejected)
	return nil
}

// ApprovePending approves every descriptor queued for the target in
// ascending creation order, leaving the record equal to the last snapshot.
// Processing stops at the first failing descriptor; earlier descriptors stay
// removed, the remainder stays pending.
func (s *Service) ApprovePending(ctx context.Context, targetID string) error {
	pending, err := s.changes.ListPending(ctx, targetID)
	if err != nil {
		return err
	}
	for _, change := range pending {
		if err = s.Approve(ctx, change); err != nil {
			return fmt.Errorf("failed to approve pending changes for %v at change %v: %w", targetID, change.ID, err)
		}
	}
	return nil
}

// RejectPending discards every descriptor queued for the target.
func (s *Service) RejectPending(ctx context.Context, targetID string) error {
	pending, err := s.changes.ListPending(ctx, targetID)
	if err != nil {
		return err
	}
	for _, change := range pending {
		if err = s.Reject(ctx, change); err != nil {
			return fmt.Errorf("failed to reject pending changes for %v at change %v: %w", targetID, change.ID, err)
		}
	}
	return nil
}

// AsObject decodes the queued descriptor into a live record with the
// proposed values applied, without touching the store or the persisted
// record. A missing descriptor is an error for this accessor.
func (s *Service) AsObject(ctx context.Context, id string) (model.Record, error) {
	change, err := s.changes.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if change == nil {
		return nil, fmt.Errorf("change %v: %w", id, dao.ErrNotFound)
	}
	return s.codec.Decode(change)
}

func (s *Service) publish(ctx context.Context, topic string, change *approval.Change, state approval.State) {
	if s.events == nil {
		return
	}
	decided := *change
	decided.State = state
	s.events.Publish(ctx, topic, &decided)
}
