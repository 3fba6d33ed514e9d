// Package engine drives planning and writing for batches of records.
//
// ARCHITECTURE:
//
// Context:
// All process-level state (configuration, record model, strategy registry,
// store, logger) lives in one Context built by NewContext and passed by
// reference. Nothing is initialised lazily behind a global.
//
// Batch Flow:
//  1. Resolve the configured planner (cached instance when planner.cached)
//  2. Fetch existing records from the store when the planner requires them
//  3. Partition the batch: key-hash buckets when the planner requires key
//     colocation, contiguous chunks otherwise
//  4. Plan partitions concurrently, bounded by the configured parallelism
//  5. Concatenate partition plans in partition order
//  6. Apply the plan to the store in one transaction
//
// Cancelling the context discards the whole batch: nothing is written
// unless every partition planned successfully.
//
// Streaming:
// Stream watches a spool directory, translates new files line by line,
// buffers the records, and flushes one batch per schedule tick. Source
// files are renamed with a .done suffix once their batch is written, or
// .failed when it is not.
package engine
