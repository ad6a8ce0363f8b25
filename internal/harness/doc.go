// Package harness runs scripted scentbox sessions against the real engines
// and checks their outcome.
//
// A scenario wires a remote fixture, the survey engine, the recommendation
// loader and the selection engine together over an in-memory store, with a
// fake clock and deterministic idempotency keys. Each step is one UI-level
// operation; the harness records what every step returned and what the box
// looked like afterwards.
//
// # Scenario Format
//
//	name: box_remove_exhausted
//	description: "Removing from an exhausted pool leaves the box short"
//	selection:
//	  target_count: 4
//	  max_price: 2
//	fixture:
//	  candidates:
//	    - { internal_id: a, external_id: a, score: 0.9 }
//	  catalog:
//	    - { id: a, external_id: a, name: Neroli, price_per_unit: 1.0 }
//	steps:
//	  - op: load
//	  - op: remove
//	    args: { id: b }
//	    expect: { ok: true, selected: [a, c, d] }
//	  - op: set_answer
//	    args: { key: intensity, value: 4 }
//	  - op: auth
//	    args: { authenticated: true }
//	  - op: advance
//	    args: { duration: 6s }
//	assertions:
//	  - type: selected
//	    ids: [a, c, d]
//	  - type: total_price
//	    value: 40
//	  - type: submissions
//	    count: 1
//
// # Operations
//
//   - load: run a recommendation load (args: min_price, max_price,
//     categories) and reseed the box from a committed result
//   - set_target_count (count), set_price_range (min, max), set_unit (unit)
//   - remove (id), swap (old_id, new_id)
//   - set_answer (key, value), submit, reset_survey
//   - auth (authenticated): one authentication observation, applied
//     synchronously
//   - advance (duration): move the fake clock
//
// # Assertions
//
//   - selected, excluded, pool: exact id lists
//   - total_price: value
//   - submissions: number of confirmed uploads
//   - pending: whether an upload is still pending
//
// # Golden Files
//
// RunWithGolden snapshots the step trace as canonical JSON under
// testdata/golden/{name}.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
