package intercept_test

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
	"github.com/shahfaizanali/manzoori/service/intercept"
)

type document struct {
	Id        string `json:"id"`
	Title     string `json:"title"`
	State     string `json:"state"`
	UpdatedAt string `json:"updatedAt"`
}

func (d *document) ID() string { return d.Id }

type harness struct {
	records *memory.Store
	changes approval.Store
	service *intercept.Service
}

func newHarness(t *testing.T, rule *policy.Rule) *harness {
	t.Helper()
	types := extension.NewTypes()
	types.Register(x.NewType(reflect.TypeOf(document{})))
	rules := policy.NewRules()
	if rule != nil {
		err := rules.Register(extension.TypeName(reflect.TypeOf(document{})), rule,
			extension.FieldNames(reflect.TypeOf(document{})))
		assert.NoError(t, err)
	}
	records := memory.New()
	changes := amemory.New()
	return &harness{
		records: records,
		changes: changes,
		service: intercept.New(records, changes, rules, approval.NewCodec(types), nil),
	}
}

func alwaysApprove(model.Record) bool { return true }

func TestSave_NewRecordCommitsDirectly(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, &policy.Rule{NeedsApproval: alwaysApprove})

	outcome, err := h.service.Save(ctx, &document{Id: "doc-1", Title: "A"})
	assert.NoError(t, err)
	assert.True(t, outcome.Committed)
	assert.Nil(t, outcome.Change)

	stored, err := h.records.Load(ctx, "doc-1")
	assert.NoError(t, err)
	assert.Equal(t, "A", stored.(*document).Title)

	has, err := h.service.HasPending(ctx, stored)
	assert.NoError(t, err)
	assert.False(t, has)
}

func TestSave_CapturesGovernedMutation(t *testing.T) {
	ctx := context.Background()
	restore := clock.Stub(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Second)
	defer restore()
	h := newHarness(t, &policy.Rule{NeedsApproval: alwaysApprove, Excluded: []string{"updatedAt"}})

	doc := &document{Id: "doc-1", Title: "A", State: "approved"}
	_, err := h.service.Save(ctx, doc)
	assert.NoError(t, err)

	doc.Title = "B"
	doc.UpdatedAt = "2024-01-02"
	outcome, err := h.service.Save(ctx, doc)
	assert.NoError(t, err)
	assert.False(t, outcome.Committed)
	if !assert.NotNil(t, outcome.Change) {
		return
	}

	// The persisted record is untouched.
	stored, err := h.records.Load(ctx, "doc-1")
	assert.NoError(t, err)
	assert.Equal(t, "A", stored.(*document).Title)

	// The descriptor carries only non-excluded dirt, the snapshot the full
	// intended end-state.
	change := outcome.Change
	assert.Equal(t, "doc-1", change.TargetID)
	assert.EqualValues(t, map[string]interface{}{"title": "B"}, change.ObjectChanges)
	assert.Equal(t, approval.StatePending, change.State)
	assert.Contains(t, string(change.Snapshot), `"title":"B"`)
	assert.Contains(t, string(change.Snapshot), `"updatedAt":"2024-01-02"`)

	has, err := h.service.HasPending(ctx, doc)
	assert.NoError(t, err)
	assert.True(t, has)
}

func TestSave_SequentialCapturesStayOrdered(t *testing.T) {
	ctx := context.Background()
	restore := clock.Stub(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Second)
	defer restore()
	h := newHarness(t, &policy.Rule{NeedsApproval: alwaysApprove})

	doc := &document{Id: "doc-1", Title: "A"}
	_, err := h.service.Save(ctx, doc)
	assert.NoError(t, err)

	for _, title := range []string{"B", "C", "D"} {
		doc.Title = title
		_, err = h.service.Save(ctx, doc)
		assert.NoError(t, err)
	}

	pending, err := h.changes.ListPending(ctx, "doc-1")
	assert.NoError(t, err)
	if assert.Len(t, pending, 3) {
		assert.Equal(t, "B", pending[0].ObjectChanges["title"])
		assert.Equal(t, "D", pending[2].ObjectChanges["title"])
		assert.True(t, pending[0].CreatedAt.Before(pending[2].CreatedAt))
	}
}

func TestSave_DirectCommitBranches(t *testing.T) {
	type testCase struct {
		name   string
		rule   *policy.Rule
		ctx    context.Context
		mutate func(doc *document)
	}

	testCases := []testCase{
		{
			name:   "policy says no approval needed",
			rule:   &policy.Rule{NeedsApproval: func(model.Record) bool { return false }},
			ctx:    context.Background(),
			mutate: func(doc *document) { doc.Title = "B" },
		},
		{
			name:   "only excluded fields dirty",
			rule:   &policy.Rule{NeedsApproval: alwaysApprove, Excluded: []string{"updatedAt"}},
			ctx:    context.Background(),
			mutate: func(doc *document) { doc.UpdatedAt = "2024-01-02" },
		},
		{
			name:   "unregistered type",
			rule:   nil,
			ctx:    context.Background(),
			mutate: func(doc *document) { doc.Title = "B" },
		},
		{
			name:   "bypassed context",
			rule:   &policy.Rule{NeedsApproval: alwaysApprove},
			ctx:    policy.WithBypass(context.Background()),
			mutate: func(doc *document) { doc.Title = "B" },
		},
		{
			name:   "nothing dirty",
			rule:   &policy.Rule{NeedsApproval: alwaysApprove},
			ctx:    context.Background(),
			mutate: func(doc *document) {},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, tc.rule)
			doc := &document{Id: "doc-1", Title: "A"}
			_, err := h.service.Save(tc.ctx, doc)
			assert.NoError(t, err)

			tc.mutate(doc)
			outcome, err := h.service.Save(tc.ctx, doc)
			assert.NoError(t, err)
			assert.True(t, outcome.Committed)

			stored, err := h.records.Load(tc.ctx, "doc-1")
			assert.NoError(t, err)
			assert.EqualValues(t, doc, stored)

			has, _ := h.service.HasPending(tc.ctx, doc)
			assert.False(t, has)
		})
	}
}

// trackedDocument reports its own dirty fields instead of being diffed.
type trackedDocument struct {
	document
	dirty map[string]interface{}
}

func (d *trackedDocument) DirtyFields() map[string]interface{} { return d.dirty }

func TestSave_ChangeTrackerCapability(t *testing.T) {
	ctx := context.Background()
	types := extension.NewTypes()
	types.Register(x.NewType(reflect.TypeOf(trackedDocument{})))
	rules := policy.NewRules()
	err := rules.Register(extension.TypeName(reflect.TypeOf(trackedDocument{})),
		&policy.Rule{NeedsApproval: alwaysApprove},
		extension.FieldNames(reflect.TypeOf(trackedDocument{})))
	assert.NoError(t, err)
	records := memory.New()
	changes := amemory.New()
	service := intercept.New(records, changes, rules, approval.NewCodec(types), nil)

	doc := &trackedDocument{document: document{Id: "doc-1", Title: "A"}}
	_, err = service.Save(ctx, doc)
	assert.NoError(t, err)

	// The tracker's report wins even though a diff would see more dirt.
	doc.Title = "B"
	doc.State = "draft"
	doc.dirty = map[string]interface{}{"title": "B"}
	outcome, err := service.Save(ctx, doc)
	assert.NoError(t, err)
	assert.False(t, outcome.Committed)
	assert.EqualValues(t, map[string]interface{}{"title": "B"}, outcome.Change.ObjectChanges)
}

// failingStore rejects every append.
type failingStore struct {
	approval.Store
}

func (s *failingStore) Append(context.Context, *approval.Change) error {
	return errors.New("store unavailable")
}

func TestSave_CaptureFailurePropagates(t *testing.T) {
	ctx := context.Background()
	types := extension.NewTypes()
	types.Register(x.NewType(reflect.TypeOf(document{})))
	rules := policy.NewRules()
	err := rules.Register(extension.TypeName(reflect.TypeOf(document{})),
		&policy.Rule{NeedsApproval: alwaysApprove},
		extension.FieldNames(reflect.TypeOf(document{})))
	assert.NoError(t, err)
	records := memory.New()
	service := intercept.New(records, &failingStore{}, rules, approval.NewCodec(types), nil)

	doc := &document{Id: "doc-1", Title: "A"}
	_, err = service.Save(ctx, doc)
	assert.NoError(t, err)

	doc.Title = "B"
	_, err = service.Save(ctx, doc)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to capture change")

	// The mutation did not silently succeed.
	stored, err := records.Load(ctx, "doc-1")
	assert.NoError(t, err)
	assert.Equal(t, "A", stored.(*document).Title)
}
