// Package optimize is the entry point of the media pipeline. An
// [Orchestrator] turns one source image into its derivative set: a primary
// re-encode in the source format, full-size WebP and AVIF encodes, and a
// responsive fan-out over every emitted format.
//
// Only a probe failure aborts a call. Every later step is isolated: a failed
// derivative is left out of the [Outcome] and recorded in Outcome.Failures,
// and the remaining derivatives are still produced.
//
// Variants are executed as tasks on a bounded pool whose results are folded
// into the outcome after all tasks finish. With one worker the tasks run in
// plan order: primary, WebP, AVIF, then responsive width by width.
package optimize
