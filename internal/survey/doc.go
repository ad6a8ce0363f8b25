// Package survey implements the survey sync engine.
//
// The engine owns the answer map, persists it on every change and uploads it
// to the remote store at most once per distinct answer set, however often the
// authentication state flips.
//
// ARCHITECTURE:
//
// Two small state machines replace ad hoc booleans:
//   - SubmitPhase: Idle -> Submitting -> Idle. Held for one attempt. A caller
//     arriving while Submitting observes a no-op, not a queued retry.
//   - AuthPhase: Unauthenticated <-> Authenticated. Transitions are computed
//     by the pure function nextAuth; the submit decision on an edge by
//     shouldSubmitOnEdge. Both are tested in isolation.
//
// Single owned subscription:
// Authentication observations from any number of sources go through
// Observe(), which enqueues them. Run() is the only consumer; it applies
// edges in FIFO order and enforces the debounce window in one place.
// Callers without a loop can use ObserveNow().
//
// Durability:
// The pending-upload flag is persisted and survives restarts. It is cleared
// only after a confirmed successful submission of the answer set that is
// still current, never speculatively.
//
// Failure semantics:
// Public operations never return remote failures. A 401/403 during an attempt
// forces a logout and aborts; any other failure leaves the flag set so a later
// edge or explicit call retries.
package survey
