// Package planner decides which write operation reconciles a dataset with a
// batch of arriving records.
//
// A Planner is built once from a Config and then called for many batches.
// PlanOperations is a synchronous, in-memory transformation: it never blocks
// on I/O and holds no per-call state between calls, so strategies that do not
// require key colocation may be invoked concurrently on disjoint inputs.
//
// # Driver obligations
//
// RequiresExistingRecords: when true, the driver passes every stored record
// that shares a key with an arriving record. When false, existing may be nil.
//
// RequiresKeyColocation: when true, the driver routes all records sharing a
// key to the same PlanOperations call. Planners do not detect a violation;
// splitting a key across calls silently produces a wrong plan.
//
// # Built-in strategies
//
//   - insert-only: every arriving record becomes an INSERT
//   - upsert: one UPSERT per key, latest event time wins
//   - event-time-history: type-2 history versions ordered by event time
package planner
