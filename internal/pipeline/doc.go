// Package pipeline is the batch walker: it discovers source images under a
// root, runs one orchestrator invocation per file on a bounded pool, and
// folds the per-file outcomes into a batch tally once every file is done.
//
//   - Discover(root, opts) → sorted source paths (hidden and excluded
//     directories pruned, derived outputs skipped)
//   - Run(ctx, cfg, orch, log, opts) → Summary (tally plus manifest entries)
//   - NewOrchestrator(cfg, log, rec) wires the encoder registry and file
//     store described by a Config
package pipeline
