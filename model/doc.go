// Package model defines the record contracts consumed by the approval
// engine: record identity, optional dirty-field tracking and the primary
// record store boundary.
package model
