// Package policy decides whether a mutation needs review. Rules are
// registered per record type at startup; misconfiguration fails registration
// rather than individual saves.
package policy
