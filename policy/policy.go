package policy

import (
	"context"

	"github.com/shahfaizanali/manzoori/model"
)

// Rule configures approval behaviour for one record type.
//
//   - NeedsApproval is evaluated on every mutation of an already persisted
//     record; returning true diverts the commit into the approval queue.
//   - Excluded names the fields exempt from capture (JSON field names).
//     Changes limited to excluded fields always commit directly, and
//     excluded fields never appear in a descriptor's ObjectChanges.
//
// Newly created records always commit directly regardless of the rule.
type Rule struct {
	NeedsApproval func(record model.Record) bool
	Excluded      []string
}

// ExcludedSet returns the exclusion list as a set.
func (r *Rule) ExcludedSet() map[string]bool {
	if r == nil || len(r.Excluded) == 0 {
		return nil
	}
	out := make(map[string]bool, len(r.Excluded))
	for _, name := range r.Excluded {
		out[name] = true
	}
	return out
}

type ctxKeyT struct{}

var ctxKey ctxKeyT

// WithBypass marks ctx so that saves commit directly without interception.
// Intended for migrations and trusted maintenance paths.
func WithBypass(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey, true)
}

// IsBypassed reports whether ctx carries the bypass marker.
func IsBypassed(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	bypassed, ok := ctx.Value(ctxKey).(bool)
	return ok && bypassed
}
