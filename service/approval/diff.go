package approval

import (
	"encoding/json"
	"fmt"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/shahfaizanali/manzoori/model"
)

// Diff renders a unified diff between the current record state and the
// change's proposed snapshot, for reviewer display. Both sides are
// normalized through indented JSON so the diff tracks field values, not
// formatting.
func (c *Codec) Diff(current model.Record, change *Change) (string, error) {
	before, err := prettyJSON(current)
	if err != nil {
		return "", fmt.Errorf("failed to render current state: %w", err)
	}
	proposed, err := c.Decode(change)
	if err != nil {
		return "", err
	}
	after, err := prettyJSON(proposed)
	if err != nil {
		return "", fmt.Errorf("failed to render change %v: %w", change.ID, err)
	}
	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: change.TargetID + " (current)",
		ToFile:   change.TargetID + " (proposed)",
		Context:  3,
	}
	return difflib.GetUnifiedDiffString(ud)
}

func prettyJSON(value interface{}) (string, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data) + "\n", nil
}
