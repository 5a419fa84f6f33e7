package policy

import (
	"errors"
	"fmt"
	"sync"
)

// Configuration errors surfaced at registration time; a mutation never
// triggers rule validation.
var (
	// ErrMissingPredicate indicates a rule registered without a
	// NeedsApproval predicate.
	ErrMissingPredicate = errors.New("policy: missing needs-approval predicate")

	// ErrUnknownField indicates an excluded field that does not exist on the
	// registered record type.
	ErrUnknownField = errors.New("policy: unknown excluded field")
)

// Rules holds the per-record-type approval rules. It is initialised once at
// startup and read on every intercepted save.
type Rules struct {
	mu    sync.RWMutex
	rules map[string]*Rule
}

// NewRules creates an empty rule registry.
func NewRules() *Rules {
	return &Rules{rules: make(map[string]*Rule)}
}

// Register validates and stores the rule for a record type. typeName is the
// canonical record type name, validFields the type's JSON field names used
// to verify the exclusion set.
func (r *Rules) Register(typeName string, rule *Rule, validFields []string) error {
	if rule == nil || rule.NeedsApproval == nil {
		return fmt.Errorf("register %v: %w", typeName, ErrMissingPredicate)
	}
	known := make(map[string]bool, len(validFields))
	for _, name := range validFields {
		known[name] = true
	}
	for _, name := range rule.Excluded {
		if !known[name] {
			return fmt.Errorf("register %v: %q: %w", typeName, name, ErrUnknownField)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[typeName] = rule
	return nil
}

// Lookup returns the rule registered for a record type, or nil when the type
// is not governed.
func (r *Rules) Lookup(typeName string) *Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rules[typeName]
}
