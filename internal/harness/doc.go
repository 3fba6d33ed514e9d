// Package harness runs planning scenarios end to end.
//
// A scenario configures a strategy, applies setup batches to a fresh
// in-memory store, then applies flow batches and records what each one
// planned and wrote. The clock and key generator are fixed, so the same
// scenario always produces byte-identical plans.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: upsert_collapse
//	description: "Later versions of a key replace earlier ones"
//	clock: "2024-01-01T00:00:00Z"
//	key_prefix: key
//	config:
//	  planner: upsert
//	  model:
//	    key:
//	      fields: [id]
//	setup:
//	  - records:
//	      - { id: "a", v: 1 }
//	flow:
//	  - records:
//	      - { id: "a", v: 2 }
//	    expect:
//	      counts: { UPSERT: 1 }
//	assertions:
//	  - type: row_count
//	    count: 1
//	  - type: row_contains
//	    where: { id: "a", v: 2 }
//
// config is flattened to dotted option keys exactly as configuration files
// are. Setup batches must succeed. A flow step may instead expect an error
// code, for example MISSING_FIELD or UNSUPPORTED_MODEL.
//
// # Assertion Types
//
//   - row_count: the dataset holds exactly count rows after the flow
//   - row_contains: some stored row holds every field in where
//   - plan_count: flow step `step` planned exactly count records of op
//
// # Golden Files
//
// RunWithGolden compares the canonical JSON of the flow trace and final
// state against testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
