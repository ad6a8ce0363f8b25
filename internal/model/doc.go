// Package model defines the shared domain types of scentbox.
//
// The types here cross package boundaries: survey answers flow from the
// survey engine to the remote store, candidates and catalog items flow from
// the remote store through the recommendation loader into the selection
// engine.
//
// # Answer values
//
// AnswerValue is a sealed interface. Only Rating and Choice implement it.
// Ratings are integers 1-5, with NoAnswer (-1) as the explicit "skipped"
// sentinel. Choices are string enums for categorical questions. Floats never
// appear in an answer map; they would make AnswerSetHash unstable.
//
// # Identity
//
// AnswerSetHash computes a content-addressed identity for an answer map using
// canonical JSON (sorted keys, NFC normalized strings, no HTML escaping) and
// SHA-256 with domain separation. Two maps with the same answers always hash
// the same, regardless of insertion order.
package model
