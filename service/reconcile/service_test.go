package reconcile_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/viant/x"

	"github.com/shahfaizanali/manzoori/extension"
	"github.com/shahfaizanali/manzoori/internal/clock"
	"github.com/shahfaizanali/manzoori/model"
	"github.com/shahfaizanali/manzoori/model/memory"
	"github.com/shahfaizanali/manzoori/policy"
	"github.com/shahfaizanali/manzoori/service/approval"
	amemory "github.com/shahfaizanali/manzoori/service/approval/memory"
	"github.com/shahfaizanali/manzoori/service/dao"
	"github.com/shahfaizanali/manzoori/service/intercept"
	"github.com/shahfaizanali/manzoori/service/reconcile"
)

type document struct {
	Id    string `json:"id"`
	Title string `json:"title"`
	State string `json:"state"`
}

func (d *document) ID() string { return d.Id }

type harness struct {
	records     model.Store
	changes     approval.Store
	interceptor *intercept.Service
	service     *reconcile.Service
}

// newHarness wires a full capture/reconcile pipeline over in-memory stores.
func newHarness(t *testing.T) *harness {
	t.Helper()
	types := extension.NewTypes()
	types.Register(x.NewType(reflect.TypeOf(document{})))
	rules := policy.NewRules()
	err := rules.Register(extension.TypeName(reflect.TypeOf(document{})),
		&policy.Rule{NeedsApproval: func(model.Record) bool { return true }},
		extension.FieldNames(reflect.TypeOf(document{})))
	assert.NoError(t, err)
	codec := approval.NewCodec(types)
	records := memory.New()
	changes := amemory.New()
	return &harness{
		records:     records,
		changes:     changes,
		interceptor: intercept.New(records, changes, rules, codec, nil),
		service:     reconcile.New(records, changes, codec, nil),
	}
}

// seed commits the initial document and queues one capture per title.
func (h *harness) seed(t *testing.T, ctx context.Context, titles ...string) []*approval.Change {
	t.Helper()
	doc := &document{Id: "doc-1", Title: "A", State: "approved"}
	_, err := h.interceptor.Save(ctx, doc)
	assert.NoError(t, err)
	for _, title := range titles {
		doc.Title = title
		outcome, err := h.interceptor.Save(ctx, doc)
		assert.NoError(t, err)
		assert.False(t, outcome.Committed)
	}
	pending, err := h.changes.ListPending(ctx, "doc-1")
	assert.NoError(t, err)
	assert.Len(t, pending, len(titles))
	return pending
}

func TestApprove_ReplaysSnapshot(t *testing.T) {
	ctx := context.Background()
	restore := clock.Stub(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Second)
	defer restore()
	h := newHarness(t)
	pending := h.seed(t, ctx, "B", "C")

	// Approving the last descriptor replays its snapshot.
	assert.NoError(t, h.service.Approve(ctx, pending[1]))

	stored, err := h.records.Load(ctx, "doc-1")
	assert.NoError(t, err)
	assert.Equal(t, "C", stored.(*document).Title)

	// Only the approved descriptor was dequeued.
	remaining, err := h.changes.ListPending(ctx, "doc-1")
	assert.NoError(t, err)
	if assert.Len(t, remaining, 1) {
		assert.Equal(t, pending[0].ID, remaining[0].ID)
	}

	// Double-approve is a no-op.
	assert.NoError(t, h.service.Approve(ctx, pending[1]))
}

func TestApprove_WinsOverOutOfBandWrites(t *testing.T) {
	ctx := context.Background()
	restore := clock.Stub(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Second)
	defer restore()
	h := newHarness(t)
	pending := h.seed(t, ctx, "B")

	// The record was mutated outside the engine after capture.
	assert.NoError(t, h.records.Save(ctx, &document{Id: "doc-1", Title: "Z", State: "approved"}))

	assert.NoError(t, h.service.Approve(ctx, pending[0]))
	stored, _ := h.records.Load(ctx, "doc-1")
	assert.Equal(t, "B", stored.(*document).Title)
}

func TestReject_LeavesRecordUntouched(t *testing.T) {
	ctx := context.Background()
	restore := clock.Stub(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Second)
	defer restore()
	h := newHarness(t)
	pending := h.seed(t, ctx, "B", "C")

	assert.NoError(t, h.service.Reject(ctx, pending[0]))
	assert.NoError(t, h.service.Reject(ctx, pending[0])) // no-op

	stored, err := h.records.Load(ctx, "doc-1")
	assert.NoError(t, err)
	assert.Equal(t, "A", stored.(*document).Title)

	remaining, err := h.changes.ListPending(ctx, "doc-1")
	assert.NoError(t, err)
	if assert.Len(t, remaining, 1) {
		assert.Equal(t, pending[1].ID, remaining[0].ID)
	}
}

func TestApprovePending_ConvergesOnLastSnapshot(t *testing.T) {
	ctx := context.Background()
	restore := clock.Stub(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Second)
	defer restore()
	h := newHarness(t)
	h.seed(t, ctx, "B", "C", "D")

	assert.NoError(t, h.service.ApprovePending(ctx, "doc-1"))

	stored, err := h.records.Load(ctx, "doc-1")
	assert.NoError(t, err)
	assert.Equal(t, "D", stored.(*document).Title)

	has, err := h.changes.HasPending(ctx, "doc-1")
	assert.NoError(t, err)
	assert.False(t, has)
}

func TestRejectPending_DiscardsQueue(t *testing.T) {
	ctx := context.Background()
	restore := clock.Stub(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Second)
	defer restore()
	h := newHarness(t)
	h.seed(t, ctx, "B", "C")

	assert.NoError(t, h.service.RejectPending(ctx, "doc-1"))

	stored, err := h.records.Load(ctx, "doc-1")
	assert.NoError(t, err)
	assert.Equal(t, "A", stored.(*document).Title)

	has, err := h.changes.HasPending(ctx, "doc-1")
	assert.NoError(t, err)
	assert.False(t, has)
}

func TestAsObject(t *testing.T) {
	ctx := context.Background()
	restore := clock.Stub(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Second)
	defer restore()
	h := newHarness(t)
	pending := h.seed(t, ctx, "B")

	proposed, err := h.service.AsObject(ctx, pending[0].ID)
	assert.NoError(t, err)
	assert.Equal(t, "B", proposed.(*document).Title)

	// Inspecting never mutates persisted state or the queue.
	stored, _ := h.records.Load(ctx, "doc-1")
	assert.Equal(t, "A", stored.(*document).Title)
	has, _ := h.changes.HasPending(ctx, "doc-1")
	assert.True(t, has)

	_, err = h.service.AsObject(ctx, "ghost")
	assert.ErrorIs(t, err, dao.ErrNotFound)
}

// failingRecords rejects every save so approval cannot commit.
type failingRecords struct {
	model.Store
}

func (s *failingRecords) Save(context.Context, model.Record) error {
	return errors.New("storage unavailable")
}

func TestApprove_FailedCommitLeavesPending(t *testing.T) {
	ctx := context.Background()
	restore := clock.Stub(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Second)
	defer restore()
	h := newHarness(t)
	pending := h.seed(t, ctx, "B")

	types := extension.NewTypes()
	types.Register(x.NewType(reflect.TypeOf(document{})))
	broken := reconcile.New(&failingRecords{Store: h.records}, h.changes, approval.NewCodec(types), nil)

	err := broken.Approve(ctx, pending[0])
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to commit change")

	// The descriptor stays pending so the caller can retry.
	remaining, _ := h.changes.ListPending(ctx, "doc-1")
	assert.Len(t, remaining, 1)

	err = broken.ApprovePending(ctx, "doc-1")
	assert.Error(t, err)
	remaining, _ = h.changes.ListPending(ctx, "doc-1")
	assert.Len(t, remaining, 1)
}
