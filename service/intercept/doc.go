// Package intercept implements the save hook that diverts governed record
// mutations into the approval queue instead of committing them.
package intercept
