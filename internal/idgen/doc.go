// Package idgen centralises identifier generation so that tests can produce
// deterministic change identifiers.
package idgen
