// Package store provides the persisted key-value store that survives process
// restarts.
//
// The engines only need three operations (get, set, remove) on string keys,
// expressed by the KV interface. Two implementations live here:
//   - Store: SQLite-backed, the default on-device store
//   - Memory: mutex-guarded map for tests and ephemeral runs
//
// A Badger-backed implementation lives in store/badgerkv.
//
// # Keys
//
// Each key is owned by exactly one engine; no two engines write the same key.
//   - survey-answers, survey-progress, pending-upload-flag,
//     survey-submitted-hash: survey engine
//   - selection-state: selection engine
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON
//
// Single-key writes use ON CONFLICT(key) DO UPDATE, so a set is an atomic
// overwrite. Missing keys are reported with ok == false, never as an error.
package store
