package manzoori

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/viant/x"

	"github.com/shahfaizanali/manzoori/extension"
	"github.com/shahfaizanali/manzoori/model"
	"github.com/shahfaizanali/manzoori/policy"
	"github.com/shahfaizanali/manzoori/service/approval"
	afs "github.com/shahfaizanali/manzoori/service/approval/fs"
	"github.com/shahfaizanali/manzoori/service/approval/memory"
	"github.com/shahfaizanali/manzoori/service/dao"
	"github.com/shahfaizanali/manzoori/service/event"
	"github.com/shahfaizanali/manzoori/service/intercept"
	"github.com/shahfaizanali/manzoori/service/reconcile"
)

// Service is the approval-gated mutation engine facade. Hosts route record
// saves through it; mutations of governed, already persisted records are
// withheld from the primary store and queued as change descriptors until a
// reviewer approves or rejects them.
type Service struct {
	config      *Config
	types       *extension.Types
	rules       *policy.Rules
	codec       *approval.Codec
	records     model.Store
	changes     approval.Store
	events      *event.Queue
	interceptor *intercept.Service
	reconciler  *reconcile.Service
}

// New creates an engine over the host's record store.
func New(records model.Store, options ...Option) (*Service, error) {
	if records == nil {
		return nil, fmt.Errorf("record store cannot be nil")
	}
	s := &Service{records: records}
	for _, option := range options {
		option(s)
	}
	if err := s.init(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) init() error {
	if s.config == nil {
		s.config = DefaultConfig()
	}
	if err := s.config.Validate(); err != nil {
		return err
	}
	if s.types == nil {
		s.types = extension.NewTypes()
	}
	s.rules = policy.NewRules()
	s.codec = approval.NewCodec(s.types)
	if s.events == nil {
		s.events = event.NewQueue(s.config.Events.Buffer)
	}
	if s.changes == nil {
		if s.config.Store.BaseURL != "" {
			changes, err := afs.New(s.config.Store.BaseURL)
			if err != nil {
				return err
			}
			s.changes = changes
		} else {
			s.changes = memory.New()
		}
	}
	s.interceptor = intercept.New(s.records, s.changes, s.rules, s.codec, s.events)
	s.reconciler = reconcile.New(s.records, s.changes, s.codec, s.events)
	return nil
}

// Register puts a record type under approval control: the prototype's
// concrete type joins the snapshot registry and the rule is validated and
// stored. Misconfiguration fails here, never on a later save.
func (s *Service) Register(prototype model.Record, rule *policy.Rule) error {
	if prototype == nil {
		return fmt.Errorf("prototype cannot be nil")
	}
	rType := reflect.TypeOf(prototype)
	for rType.Kind() == reflect.Ptr {
		rType = rType.Elem()
	}
	if err := s.rules.Register(extension.TypeName(rType), rule, extension.FieldNames(rType)); err != nil {
		return err
	}
	s.types.Register(x.NewType(rType))
	return nil
}

// Save routes one mutation attempt through the interception engine. The
// returned outcome distinguishes "committed" from "captured, not committed".
func (s *Service) Save(ctx context.Context, record model.Record) (*intercept.Outcome, error) {
	return s.interceptor.Save(ctx, record)
}

// PendingChanges returns the record's queued descriptors ascending by
// creation time.
func (s *Service) PendingChanges(ctx context.Context, record model.Record) ([]*approval.Change, error) {
	if record == nil {
		return nil, dao.ErrNilEntity
	}
	return s.changes.ListPending(ctx, record.ID())
}

// HasPendingChanges reports whether the record awaits approval.
func (s *Service) HasPendingChanges(ctx context.Context, record model.Record) (bool, error) {
	return s.interceptor.HasPending(ctx, record)
}

// Approve replays one queued descriptor into the record store and dequeues
// it.
func (s *Service) Approve(ctx context.Context, change *approval.Change) error {
	return s.reconciler.Approve(ctx, change)
}

// Reject discards one queued descriptor without touching the persisted
// record.
func (s *Service) Reject(ctx context.Context, change *approval.Change) error {
	return s.reconciler.Reject(ctx, change)
}

// ApprovePendingChanges approves the record's whole queue in order, leaving
// the persisted record equal to the last descriptor's snapshot.
func (s *Service) ApprovePendingChanges(ctx context.Context, record model.Record) error {
	if record == nil {
		return dao.ErrNilEntity
	}
	return s.reconciler.ApprovePending(ctx, record.ID())
}

// RejectPendingChanges discards the record's whole queue.
func (s *Service) RejectPendingChanges(ctx context.Context, record model.Record) error {
	if record == nil {
		return dao.ErrNilEntity
	}
	return s.reconciler.RejectPending(ctx, record.ID())
}

// AsObject decodes a queued descriptor into a live record with the proposed
// values applied. Accessing a dequeued descriptor returns dao.ErrNotFound.
func (s *Service) AsObject(ctx context.Context, id string) (model.Record, error) {
	return s.reconciler.AsObject(ctx, id)
}

// Diff renders a reviewer-facing unified diff between the persisted record
// and the descriptor's proposed state.
func (s *Service) Diff(ctx context.Context, change *approval.Change) (string, error) {
	if change == nil {
		return "", dao.ErrNilEntity
	}
	current, err := s.records.Load(ctx, change.TargetID)
	if err != nil && !errors.Is(err, dao.ErrNotFound) {
		return "", err
	}
	return s.codec.Diff(current, change)
}

// Events exposes the capture/decision event stream.
func (s *Service) Events() *event.Queue {
	return s.events
}

// ChangeStore exposes the underlying approval store.
func (s *Service) ChangeStore() approval.Store {
	return s.changes
}
