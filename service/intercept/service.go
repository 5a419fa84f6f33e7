package intercept

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/shahfaizanali/manzoori/extension"
	"github.com/shahfaizanali/manzoori/internal/clock"
	"github.com/shahfaizanali/manzoori/internal/idgen"
	"github.com/shahfaizanali/manzoori/model"
	"github.com/shahfaizanali/manzoori/policy"
	"github.com/shahfaizanali/manzoori/service/approval"
	"github.com/shahfaizanali/manzoori/service/dao"
	"github.com/shahfaizanali/manzoori/service/event"
	"github.com/shahfaizanali/manzoori/tracing"
)

// Outcome reports what happened to a save attempt.
type Outcome struct {
	// Committed is true when the record state reached the primary store.
	Committed bool

	// Change is the captured descriptor when the commit was withheld. A nil
	// Change with Committed true means the mutation went straight through.
	Change *approval.Change
}

// Service is the control point invoked on every save attempt. It either
// commits the record directly or withholds the commit and queues a change
// descriptor for review.
type Service struct {
	rules   *policy.Rules
	records model.Store
	changes approval.Store
	codec   *approval.Codec
	events  *event.Queue
}

// New creates an interception service.
func New(records model.Store, changes approval.Store, rules *policy.Rules, codec *approval.Codec, events *event.Queue) *Service {
	return &Service{
		rules:   rules,
		records: records,
		changes: changes,
		codec:   codec,
		events:  events,
	}
}

// Save applies the interception state machine to one mutation attempt:
//
//  1. a record with no persisted identity always commits directly
//  2. changes limited to excluded fields commit directly
//  3. when the type's rule demands approval the commit is withheld and a
//     descriptor capturing the full proposed end-state is queued instead
//
// A nil error with Outcome.Committed == false means "captured, not
// committed"; the persisted record is untouched until the change is
// approved.
func (s *Service) Save(ctx context.Context, record model.Record) (outcome *Outcome, err error) {
	if record == nil {
		return nil, dao.ErrNilEntity
	}
	ctx, span := tracing.StartSpan(ctx, "manzoori.save")
	defer func() { tracing.EndSpan(span, err) }()
	span.WithAttributes(map[string]string{"record.id": record.ID()})

	stored, err := s.records.Load(ctx, record.ID())
	if err != nil {
		if !errors.Is(err, dao.ErrNotFound) {
			return nil, err
		}
		// Initial creation commits regardless of policy.
		return s.commit(ctx, record)
	}
	dirty, err := s.dirtyFields(record, stored)
	if err != nil {
		return nil, err
	}
	if len(dirty) == 0 {
		return s.commit(ctx, record)
	}
	rule := s.rules.Lookup(extension.TypeName(reflect.TypeOf(record)))
	if rule == nil || policy.IsBypassed(ctx) {
		return s.commit(ctx, record)
	}
	effective := subtract(dirty, rule.ExcludedSet())
	if len(effective) == 0 {
		// Only exempt fields changed (e.g. audit timestamps).
		return s.commit(ctx, record)
	}
	if !rule.NeedsApproval(record) {
		return s.commit(ctx, record)
	}
	return s.capture(ctx, record, effective)
}

// HasPending reports whether the record has queued descriptors.
func (s *Service) HasPending(ctx context.Context, record model.Record) (bool, error) {
	if record == nil {
		return false, dao.ErrNilEntity
	}
	return s.changes.HasPending(ctx, record.ID())
}

func (s *Service) commit(ctx context.Context, record model.Record) (*Outcome, error) {
	if err := s.records.Save(ctx, record); err != nil {
		return nil, err
	}
	return &Outcome{Committed: true}, nil
}

func (s *Service) capture(ctx context.Context, record model.Record, effective map[string]interface{}) (*Outcome, error) {
	snapshot, err := s.codec.Encode(record)
	if err != nil {
		return nil, fmt.Errorf("failed to capture change for %v: %w", record.ID(), err)
	}
	change := &approval.Change{
		ID:            idgen.New(),
		TargetID:      record.ID(),
		TargetType:    extension.TypeName(reflect.TypeOf(record)),
		ObjectChanges: effective,
		Snapshot:      snapshot,
		State:         approval.StatePending,
		CreatedAt:     clock.Now(),
	}
	if err = s.changes.Append(ctx, change); err != nil {
		return nil, fmt.Errorf("failed to capture change for %v: %w", record.ID(), err)
	}
	if s.events != nil {
		s.events.Publish(ctx, event.TopicChangeCaptured, change)
	}
	return &Outcome{Change: change}, nil
}

// dirtyFields returns the record's modified fields keyed by JSON field name.
// Records implementing model.ChangeTracker report their own dirt; everything
// else is diffed against the stored copy.
func (s *Service) dirtyFields(record, stored model.Record) (map[string]interface{}, error) {
	if tracker, ok := record.(model.ChangeTracker); ok {
		return tracker.DirtyFields(), nil
	}
	current, err := s.codec.FieldMap(record)
	if err != nil {
		return nil, err
	}
	before, err := s.codec.FieldMap(stored)
	if err != nil {
		return nil, err
	}
	dirty := make(map[string]interface{})
	for name, value := range current {
		if !reflect.DeepEqual(before[name], value) {
			dirty[name] = value
		}
	}
	for name, value := range before {
		if _, ok := current[name]; !ok && value != nil {
			dirty[name] = nil // cleared optional field
		}
	}
	return dirty, nil
}

func subtract(dirty map[string]interface{}, excluded map[string]bool) map[string]interface{} {
	if len(excluded) == 0 {
		return dirty
	}
	out := make(map[string]interface{}, len(dirty))
	for name, value := range dirty {
		if !excluded[name] {
			out[name] = value
		}
	}
	return out
}
