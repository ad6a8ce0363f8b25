// Package selection maintains the box: a count-invariant subset of a ranked
// pool under price, count and unit constraints and direct user edits.
//
// Remove and Swap are different operations. A removed id is excluded from
// later backfills and reseeds for the rest of the session; a swapped-out id
// is not, and may come back through a later backfill.
//
// Invariants, held after every operation:
//   - selected ids are unique;
//   - len(selected) <= target count, with equality whenever enough eligible
//     items exist;
//   - no excluded id is selected.
package selection
